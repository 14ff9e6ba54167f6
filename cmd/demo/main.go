// cmd/demo/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Samuelxiaozhuofeng/ttsfm/internal/config"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/tts"
)

func main() {
	fmt.Println("🎙️ TTSFM 朗读工具")
	fmt.Println("=================================")

	// 初始化配置
	cfg, err := config.Load()
	if err != nil {
		log.Printf("❌ 加载基础配置失败: %v", err)
		return
	}

	// 读取文本文件
	inputPath := getUserInputWithDefault("文本文件路径", "text.md")
	content, err := os.ReadFile(inputPath)
	if err != nil {
		log.Printf("❌ 读取文件失败 %s: %v", inputPath, err)
		return
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		log.Printf("❌ 文件内容为空: %s", inputPath)
		return
	}

	textLength := utf8.RuneCountInString(text)
	fmt.Printf("📖 已读取 %d 个字符\n", textLength)
	if textLength > tts.MaxInputRunes {
		fmt.Printf("📑 超过 %d 字符，将分段合成后合并\n", tts.MaxInputRunes)
	}

	// 选择发音人和输出文件
	voiceName := getUserInputWithDefault("发音人 (alloy/echo/fable/onyx/nova/shimmer)", string(tts.DefaultVoice))
	outputBase := getUserInputWithDefault("输出文件名（不含扩展名）", "text_output")

	// 合成语音
	client := tts.NewClient(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSModel)

	fmt.Println("🔊 正在合成语音...")
	start := time.Now()

	result, err := client.SynthesizeLong(context.Background(), tts.SpeechRequest{
		Input:  text,
		Voice:  tts.VoiceFromName(voiceName),
		Format: tts.FormatMP3,
	})
	if err != nil {
		log.Printf("❌ 语音合成失败: %v", err)
		return
	}

	savedPath, err := result.SaveToFile(outputBase)
	if err != nil {
		log.Printf("❌ 保存音频失败: %v", err)
		return
	}

	fmt.Printf("✅ 合成完成，耗时 %.1fs\n", time.Since(start).Seconds())
	fmt.Printf("💾 音频已保存: %s (%d 字节)\n", savedPath, len(result.Data))
}

// 获取用户输入 (带默认值)
func getUserInputWithDefault(prompt, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [默认: %s]: ", prompt, defaultValue)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	input := strings.TrimSpace(scanner.Text())
	if input == "" {
		return defaultValue
	}
	return input
}
