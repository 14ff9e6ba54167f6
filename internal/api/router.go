// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/Samuelxiaozhuofeng/ttsfm/internal/config"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/di"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/services"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	// 获取配置
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// 只从容器获取服务，不再创建新实例
	speechService, ok := container.Get("speech").(*services.SpeechService)
	if !ok {
		return nil, fmt.Errorf("语音服务未正确初始化")
	}

	libraryService, ok := container.Get("library").(*services.LibraryService)
	if !ok {
		return nil, fmt.Errorf("书库服务未正确初始化")
	}

	chatService, ok := container.Get("chat").(*services.ChatService)
	if !ok {
		return nil, fmt.Errorf("聊天服务未正确初始化")
	}

	// 创建API处理器
	handler := NewHandler(speechService, libraryService, chatService)

	// 创建路由
	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// HTTPS重定向（生产环境）
	if !cfg.DebugMode {
		r.Use(func(c *gin.Context) {
			if c.Request.Header.Get("X-Forwarded-Proto") != "https" {
				c.Redirect(http.StatusPermanentRedirect,
					"https://"+c.Request.Host+c.Request.URL.Path)
				return
			}
			c.Next()
		})
	}

	// 静态文件服务
	r.Static("/static", cfg.StaticDir)

	// HTML模板
	r.LoadHTMLGlob(filepath.Join(cfg.TemplatesDir, "*.html"))

	// ===============================
	// 页面路由
	// ===============================
	r.GET("/", handler.IndexPage)
	r.GET("/reader", handler.ReaderPage)
	r.GET("/library", handler.LibraryPage)

	registerAPIRoutes(r, handler)

	return r, nil
}

// registerAPIRoutes 注册全部API路由
func registerAPIRoutes(r *gin.Engine, handler *Handler) {
	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		// ===============================
		// 语音合成相关路由
		// ===============================
		api.POST("/generate", handler.GenerateSpeech)
		api.POST("/upload", handler.UploadFile)
		api.GET("/download/:filename", handler.DownloadFile)
		api.GET("/play/:filename", handler.PlayFile)
		api.GET("/voices", handler.GetVoices)

		// ===============================
		// 书库相关路由
		// ===============================
		libraryGroup := api.Group("/library")
		{
			libraryGroup.GET("/chapters", handler.GetChapters)
			libraryGroup.POST("/chapter", handler.AddChapter)
			libraryGroup.GET("/chapter/:chapter_id", handler.GetChapter)
			libraryGroup.DELETE("/chapter/:chapter_id", handler.DeleteChapter)
			libraryGroup.POST("/progress/:chapter_id", handler.UpdateProgress)
		}

		// ===============================
		// AI设置相关路由
		// ===============================
		aiGroup := api.Group("/ai")
		{
			aiGroup.GET("/settings", handler.GetAISettings)
			aiGroup.POST("/settings", handler.SaveAISettings)
			aiGroup.POST("/test", handler.TestAIConnection)
		}

		// ===============================
		// 聊天相关路由
		// ===============================
		chatGroup := api.Group("/chat")
		{
			chatGroup.POST("/message", handler.ChatMessage)
			chatGroup.GET("/history/:chapter_id", handler.GetChatHistory)
			chatGroup.DELETE("/history/:chapter_id", handler.ClearChatHistory)
		}
	}
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
