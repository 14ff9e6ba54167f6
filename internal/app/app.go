// internal/app/app.go
package app

import (
	"fmt"

	"github.com/Samuelxiaozhuofeng/ttsfm/internal/config"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/di"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/services"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/storage"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/tts"
)

// InitServices 按依赖顺序初始化所有服务并注册到依赖注入容器
func InitServices(cfg *config.Config) error {
	container := di.GetContainer()

	// 书库数据存储
	dataStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("初始化数据存储失败: %w", err)
	}

	// 音频文件存储
	audioStorage, err := storage.NewFileStorage(cfg.AudioDir)
	if err != nil {
		return fmt.Errorf("初始化音频存储失败: %w", err)
	}

	// 书库服务：加载已有数据，数据损坏时从空库启动
	libraryService := services.NewLibraryService(dataStorage)

	// TTS客户端
	ttsClient := tts.NewClient(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSModel)

	// 语音合成服务
	speechService := services.NewSpeechService(ttsClient, libraryService, audioStorage)

	// AI聊天服务
	chatService := services.NewChatService(libraryService)

	container.Register("storage", dataStorage)
	container.Register("audio_storage", audioStorage)
	container.Register("library", libraryService)
	container.Register("speech", speechService)
	container.Register("chat", chatService)

	return nil
}
