// internal/api/handlers.go
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Samuelxiaozhuofeng/ttsfm/internal/services"
	"github.com/gin-gonic/gin"
)

// Handler 处理API请求
type Handler struct {
	SpeechService  *services.SpeechService  // 语音合成服务
	LibraryService *services.LibraryService // 书库服务
	ChatService    *services.ChatService    // AI聊天服务
}

// NewHandler 创建API处理器
func NewHandler(
	speechService *services.SpeechService,
	libraryService *services.LibraryService,
	chatService *services.ChatService,
) *Handler {
	return &Handler{
		SpeechService:  speechService,
		LibraryService: libraryService,
		ChatService:    chatService,
	}
}

// GenerateSpeechRequest 语音生成请求结构
type GenerateSpeechRequest struct {
	Text   string  `json:"text"`   // 待合成文本
	Voice  string  `json:"voice"`  // 发音人，默认alloy
	Speed  float64 `json:"speed"`  // 语速，默认1.0
	Action string  `json:"action"` // download 或 play，由前端决定用途
}

// AddChapterRequest 添加章节请求结构
type AddChapterRequest struct {
	Title string  `json:"title"` // 章节标题
	Text  string  `json:"text"`  // 章节正文
	Voice string  `json:"voice"` // 发音人
	Speed float64 `json:"speed"` // 语速
}

// UpdateProgressRequest 进度更新请求结构
type UpdateProgressRequest struct {
	CurrentTime float64 `json:"current_time"` // 播放位置（秒）
}

// AISettingsRequest AI设置请求结构
type AISettingsRequest struct {
	APIURL string `json:"api_url"` // OpenAI兼容API地址
	APIKey string `json:"api_key"` // API密钥
	Model  string `json:"model"`   // 模型名称
}

// ChatMessageRequest 聊天消息请求结构
type ChatMessageRequest struct {
	ChapterID string `json:"chapter_id"` // 章节ID
	Message   string `json:"message"`    // 用户消息
	Stream    bool   `json:"stream"`     // 是否流式返回
}

// ========================================
// 页面处理器
// ========================================

// IndexPage 返回语音合成主页
func (h *Handler) IndexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

// ReaderPage 返回阅读器页面
func (h *Handler) ReaderPage(c *gin.Context) {
	c.HTML(http.StatusOK, "reader.html", nil)
}

// LibraryPage 返回书库页面
func (h *Handler) LibraryPage(c *gin.Context) {
	c.HTML(http.StatusOK, "library.html", nil)
}

// ========================================
// 语音合成处理器
// ========================================

// GenerateSpeech 合成语音并保存音频文件
func (h *Handler) GenerateSpeech(c *gin.Context) {
	var req GenerateSpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据"})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No text provided"})
		return
	}

	result, err := h.SpeechService.GenerateSpeech(c.Request.Context(), text, req.Voice, req.Speed)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"filename":     result.Filename,
		"message":      fmt.Sprintf("Speech generated successfully (%d characters)", result.TextLength),
		"text_length":  result.TextLength,
		"is_long_text": result.IsLongText,
	})
}

// UploadFile 上传文本文件并返回其内容
func (h *Handler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !utf8.Valid(content) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "File is not valid UTF-8 text"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"text":    string(content),
		"message": "File uploaded successfully",
	})
}

// DownloadFile 下载生成的音频文件
func (h *Handler) DownloadFile(c *gin.Context) {
	filename := c.Param("filename")

	path, ok := h.SpeechService.AudioPath(filename)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	audioDownloadResponse(c, path, filename)
}

// PlayFile 在线播放音频文件
func (h *Handler) PlayFile(c *gin.Context) {
	filename := c.Param("filename")

	path, ok := h.SpeechService.AudioPath(filename)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	audioInlineResponse(c, path)
}

// GetVoices 返回可用的发音人列表
func (h *Handler) GetVoices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"voices": h.SpeechService.VoiceNames(),
	})
}

// ========================================
// 书库处理器
// ========================================

// GetChapters 返回全部章节
func (h *Handler) GetChapters(c *gin.Context) {
	chapters := h.LibraryService.GetAllChapters()

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"chapters": chapters,
		"total":    len(chapters),
	})
}

// AddChapter 合成章节音频并加入书库
func (h *Handler) AddChapter(c *gin.Context) {
	var req AddChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据"})
		return
	}

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Text)

	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No title provided"})
		return
	}
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No content provided"})
		return
	}

	chapter, err := h.SpeechService.CreateChapter(c.Request.Context(), title, content, req.Voice, req.Speed)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"chapter": chapter,
		"message": fmt.Sprintf("Chapter added successfully (%d characters)", chapter.CharCount),
	})
}

// GetChapter 返回单个章节及其播放进度
func (h *Handler) GetChapter(c *gin.Context) {
	chapterID := c.Param("chapter_id")

	chapter, ok := h.LibraryService.GetChapter(chapterID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chapter not found"})
		return
	}

	progress, _ := h.LibraryService.GetProgress(chapterID)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"chapter":  chapter,
		"progress": progress,
	})
}

// DeleteChapter 删除章节及其音频文件
func (h *Handler) DeleteChapter(c *gin.Context) {
	chapterID := c.Param("chapter_id")

	if err := h.SpeechService.DeleteChapter(chapterID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Chapter deleted successfully",
	})
}

// UpdateProgress 更新章节的播放进度
func (h *Handler) UpdateProgress(c *gin.Context) {
	chapterID := c.Param("chapter_id")

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据"})
		return
	}

	h.LibraryService.UpdateProgress(chapterID, req.CurrentTime)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Progress updated",
	})
}

// ========================================
// AI设置处理器
// ========================================

// maskAPIKey 遮蔽API密钥，只露出末尾4位
func maskAPIKey(key string) string {
	runes := []rune(key)
	if len(runes) > 4 {
		return "***" + string(runes[len(runes)-4:])
	}
	return "***"
}

// GetAISettings 返回AI设置，密钥只以遮蔽形式下发
func (h *Handler) GetAISettings(c *gin.Context) {
	settings := h.LibraryService.GetAISettings()
	if settings == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "settings": nil})
		return
	}

	safeSettings := gin.H{
		"api_url":    settings.APIURL,
		"model":      settings.Model,
		"updated_at": settings.UpdatedAt,
	}
	if settings.APIKey != "" {
		safeSettings["api_key_masked"] = maskAPIKey(settings.APIKey)
		safeSettings["has_api_key"] = true
	} else {
		safeSettings["has_api_key"] = false
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "settings": safeSettings})
}

// SaveAISettings 保存AI设置。密钥留空时沿用已保存的密钥。
func (h *Handler) SaveAISettings(c *gin.Context) {
	var req AISettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据"})
		return
	}

	apiURL := strings.TrimSpace(req.APIURL)
	apiKey := strings.TrimSpace(req.APIKey)
	model := strings.TrimSpace(req.Model)

	if apiURL == "" || model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请填写API地址和模型名称"})
		return
	}

	if apiKey == "" {
		existing := h.LibraryService.GetAISettings()
		if existing != nil && existing.APIKey != "" {
			apiKey = existing.APIKey
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请输入API密钥"})
			return
		}
	}

	h.LibraryService.SaveAISettings(apiURL, apiKey, model)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "AI设置已保存",
	})
}

// TestAIConnection 测试AI API连通性
func (h *Handler) TestAIConnection(c *gin.Context) {
	// 请求体可缺省，缺失字段回退到已保存的设置
	var req AISettingsRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.ChatService.TestConnection(
		c.Request.Context(),
		strings.TrimSpace(req.APIURL),
		strings.TrimSpace(req.APIKey),
		strings.TrimSpace(req.Model),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          result.Message,
		"response_preview": result.ResponsePreview,
		"duration_ms":      result.DurationMS,
	})
}

// ========================================
// 聊天处理器
// ========================================

// ChatMessage 向AI发送消息。
// 请求体包含 {"stream": true} 时以SSE流式返回增量内容。
func (h *Handler) ChatMessage(c *gin.Context) {
	// 请求体缺失或畸形时按空参数处理
	var req ChatMessageRequest
	_ = c.ShouldBindJSON(&req)

	userMessage := strings.TrimSpace(req.Message)
	if req.ChapterID == "" || userMessage == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少必要参数"})
		return
	}

	// 非流式：一次性JSON返回
	if !req.Stream {
		message, err := h.ChatService.SendMessage(c.Request.Context(), req.ChapterID, userMessage)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
		return
	}

	// 流式：前置条件失败仍以JSON报错，连接建立后改用SSE
	events, err := h.ChatService.StreamMessage(c.Request.Context(), req.ChapterID, userMessage)
	if err != nil {
		respondError(c, err)
		return
	}

	// 设置SSE响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// 获取客户端连接
	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			// 客户端断开，服务层按流结束处理
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			switch ev.Type {
			case services.StreamDelta, services.StreamRaw:
				fmt.Fprintf(c.Writer, "data: %s\n\n", ev.Content)
				c.Writer.Flush()
			case services.StreamError:
				fmt.Fprintf(c.Writer, "data: %s\n\n", ev.Content)
				c.Writer.Flush()
				return
			case services.StreamDone:
				return
			}
		}
	}
}

// GetChatHistory 返回章节的聊天记录
func (h *Handler) GetChatHistory(c *gin.Context) {
	chapterID := c.Param("chapter_id")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": h.LibraryService.GetChatHistory(chapterID),
	})
}

// ClearChatHistory 清空章节的聊天记录
func (h *Handler) ClearChatHistory(c *gin.Context) {
	chapterID := c.Param("chapter_id")

	h.LibraryService.ClearChatHistory(chapterID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "聊天记录已清空",
	})
}
