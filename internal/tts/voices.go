// internal/tts/voices.go
package tts

// Voice 表示TTS服务支持的发音人
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"
)

// DefaultVoice 未指定或无法识别发音人时的默认值
const DefaultVoice = VoiceAlloy

// Voices 返回所有支持的发音人（固定顺序）
func Voices() []Voice {
	return []Voice{
		VoiceAlloy,
		VoiceEcho,
		VoiceFable,
		VoiceOnyx,
		VoiceNova,
		VoiceShimmer,
	}
}

// VoiceFromName 根据名称解析发音人，无法识别时回退到默认值
func VoiceFromName(name string) Voice {
	for _, v := range Voices() {
		if string(v) == name {
			return v
		}
	}
	return DefaultVoice
}

// AudioFormat 表示TTS输出的音频格式
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatOpus AudioFormat = "opus"
	FormatAAC  AudioFormat = "aac"
	FormatFLAC AudioFormat = "flac"
	FormatWAV  AudioFormat = "wav"
)

// DefaultFormat 未指定音频格式时的默认值
const DefaultFormat = FormatMP3
