// internal/services/speech_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/Samuelxiaozhuofeng/ttsfm/internal/errors"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/models"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/storage"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/tts"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/utils"
)

// GenerateResult 一次语音生成的结果
type GenerateResult struct {
	Filename   string
	TextLength int
	IsLongText bool
}

// SpeechService 负责语音合成及音频文件管理
type SpeechService struct {
	TTS        *tts.Client
	Library    *LibraryService
	AudioStore *storage.FileStorage
}

// NewSpeechService 创建语音服务
func NewSpeechService(ttsClient *tts.Client, library *LibraryService, audioStore *storage.FileStorage) *SpeechService {
	return &SpeechService{
		TTS:        ttsClient,
		Library:    library,
		AudioStore: audioStore,
	}
}

// randomHex 生成不含连字符的随机十六进制串
func randomHex(n int) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return hex[:n]
}

// synthesize 合成文本，超长文本自动分段合并
func (s *SpeechService) synthesize(ctx context.Context, text string, voice tts.Voice, speed float64) (*tts.SpeechResult, bool, error) {
	isLong := utf8.RuneCountInString(text) > tts.MaxInputRunes

	req := tts.SpeechRequest{
		Input:  text,
		Voice:  voice,
		Format: tts.FormatMP3,
		Speed:  speed,
	}

	var result *tts.SpeechResult
	var err error
	if isLong {
		result, err = s.TTS.SynthesizeLong(ctx, req)
	} else {
		result, err = s.TTS.Synthesize(ctx, req)
	}
	if err != nil {
		return nil, isLong, apperrors.NewUpstreamError(fmt.Sprintf("语音合成失败: %v", err), err)
	}

	return result, isLong, nil
}

// GenerateSpeech 合成文本并保存音频文件
func (s *SpeechService) GenerateSpeech(ctx context.Context, text, voiceName string, speed float64) (*GenerateResult, error) {
	voice := tts.VoiceFromName(voiceName)
	textLength := utf8.RuneCountInString(text)

	result, isLong, err := s.synthesize(ctx, text, voice, speed)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("tts_%s_%s.%s",
		randomHex(8),
		time.Now().Format("20060102_150405"),
		result.Format)

	if err := s.AudioStore.SaveFile("", filename, result.Data); err != nil {
		return nil, apperrors.NewPersistenceError(fmt.Sprintf("保存音频文件失败: %v", err), err)
	}

	return &GenerateResult{
		Filename:   filename,
		TextLength: textLength,
		IsLongText: isLong,
	}, nil
}

// CreateChapter 合成章节音频并将章节加入书库
func (s *SpeechService) CreateChapter(ctx context.Context, title, content, voiceName string, speed float64) (*models.Chapter, error) {
	voice := tts.VoiceFromName(voiceName)
	chapterID := "chapter_" + randomHex(12)

	result, _, err := s.synthesize(ctx, content, voice, speed)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s.%s",
		chapterID,
		time.Now().Format("20060102_150405"),
		result.Format)

	if err := s.AudioStore.SaveFile("", filename, result.Data); err != nil {
		return nil, apperrors.NewPersistenceError(fmt.Sprintf("保存音频文件失败: %v", err), err)
	}

	return s.Library.AddChapter(chapterID, title, content, filename), nil
}

// DeleteChapter 删除章节并清理关联的音频文件
func (s *SpeechService) DeleteChapter(chapterID string) error {
	audioFilename, ok := s.Library.DeleteChapter(chapterID)
	if !ok {
		return apperrors.NewNotFoundError("Chapter not found", nil)
	}

	// 音频文件清理失败不影响删除结果
	if audioFilename != "" && s.AudioStore.FileExists("", audioFilename) {
		if err := s.AudioStore.DeleteFile("", audioFilename); err != nil {
			utils.GetLogger().Warn("speech best-effort delete audio file failed", map[string]interface{}{
				"filename": audioFilename,
				"error":    err.Error(),
			})
		}
	}

	return nil
}

// AudioPath 返回音频文件的磁盘路径，文件不存在时返回false
func (s *SpeechService) AudioPath(filename string) (string, bool) {
	if !s.AudioStore.FileExists("", filename) {
		return "", false
	}
	return s.AudioStore.FullPath("", filename), true
}

// VoiceNames 返回所有支持的发音人名称
func (s *SpeechService) VoiceNames() []string {
	voices := tts.Voices()
	names := make([]string, 0, len(voices))
	for _, v := range voices {
		names = append(names, string(v))
	}
	return names
}
