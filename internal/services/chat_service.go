// internal/services/chat_service.go
package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Samuelxiaozhuofeng/ttsfm/internal/errors"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/models"
)

// 聊天API超时设置
const (
	chatTimeout   = 30 * time.Second // 非流式请求
	streamTimeout = 60 * time.Second // 流式请求整体上限
	testTimeout   = 20 * time.Second // 连通性测试
)

// systemPromptPrefix 阅读助手的系统提示词，章节正文拼接在后面
const systemPromptPrefix = "你是一个阅读助手。用户正在阅读以下文本，请根据文本内容回答用户的问题。\n\n文本内容：\n"

// StreamEventType 流式事件类型
type StreamEventType int

const (
	// StreamDelta 识别出的增量内容，已累积到完整回复中
	StreamDelta StreamEventType = iota
	// StreamRaw 无法解析的非JSON行，原样透传且不累积
	StreamRaw
	// StreamError 上游返回错误，流到此终止
	StreamError
	// StreamDone 上游发送了结束标记
	StreamDone
)

// StreamEvent 流式响应中的一个事件
type StreamEvent struct {
	Type    StreamEventType
	Content string
}

// ConnectionTestResult AI连通性测试结果
type ConnectionTestResult struct {
	Message         string `json:"message"`
	ResponsePreview string `json:"response_preview"`
	DurationMS      int64  `json:"duration_ms"`
}

// ChatService 基于章节内容与OpenAI兼容API对话
type ChatService struct {
	Library *LibraryService
	client  *http.Client
}

// NewChatService 创建聊天服务
func NewChatService(library *LibraryService) *ChatService {
	return &ChatService{
		Library: library,
		client:  &http.Client{},
	}
}

// BuildChatEndpoint 规范化OpenAI兼容API的对话端点。
// 去掉末尾斜杠，路径未包含 /chat/completions 时自动补全。
func BuildChatEndpoint(apiURL string) string {
	if apiURL == "" {
		return ""
	}
	normalized := strings.TrimRight(apiURL, "/")
	if strings.HasSuffix(strings.ToLower(normalized), "/chat/completions") {
		return normalized
	}
	return normalized + "/chat/completions"
}

// resolveSettings 返回完整的AI设置，任一字段缺失视为未配置
func (s *ChatService) resolveSettings() (*models.AISettings, error) {
	settings := s.Library.GetAISettings()
	if settings == nil || settings.APIURL == "" || settings.APIKey == "" || settings.Model == "" {
		return nil, apperrors.NewConfigMissingError("请先配置AI设置", nil)
	}
	return settings, nil
}

// buildMessages 组装发给AI的消息列表：系统提示 + 最近10条历史 + 当前用户消息
func (s *ChatService) buildMessages(chapter *models.Chapter, history []models.ChatMessage, userMessage string) []map[string]string {
	messages := []map[string]string{
		{"role": "system", "content": systemPromptPrefix + chapter.Content},
	}

	// 只带最近10条历史，避免超出token限制
	start := 0
	if len(history) > 10 {
		start = len(history) - 10
	}
	for _, msg := range history[start:] {
		messages = append(messages, map[string]string{"role": msg.Role, "content": msg.Content})
	}

	messages = append(messages, map[string]string{"role": "user", "content": userMessage})
	return messages
}

// postChat 向对话端点发送请求
func (s *ChatService) postChat(ctx context.Context, endpoint, apiKey string, payload map[string]interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	return s.client.Do(httpReq)
}

// mapTransportError 将HTTP客户端错误归类为超时或网络错误
func mapTransportError(err error, timeoutMessage string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewNetworkError(timeoutMessage, err)
	}
	return apperrors.NewNetworkError(fmt.Sprintf("网络错误: %v", err), err)
}

// SendMessage 发送一条消息并等待完整回复。
// 成功后将用户消息和AI回复依次写入聊天记录。
func (s *ChatService) SendMessage(ctx context.Context, chapterID, userMessage string) (string, error) {
	chapter, ok := s.Library.GetChapter(chapterID)
	if !ok {
		return "", apperrors.NewNotFoundError("章节不存在", nil)
	}

	settings, err := s.resolveSettings()
	if err != nil {
		return "", err
	}

	messages := s.buildMessages(chapter, s.Library.GetChatHistory(chapterID), userMessage)
	endpoint := BuildChatEndpoint(settings.APIURL)

	payload := map[string]interface{}{
		"model":       settings.Model,
		"messages":    messages,
		"temperature": 0.7,
	}

	reqCtx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	httpResp, err := s.postChat(reqCtx, endpoint, settings.APIKey, payload)
	if err != nil {
		return "", mapTransportError(err, "AI请求超时")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return "", apperrors.NewUpstreamError(fmt.Sprintf("AI API错误: %s", string(body)), nil)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return "", apperrors.NewUpstreamError("解析AI响应失败", err)
	}
	if len(response.Choices) == 0 {
		return "", apperrors.NewUpstreamError("AI未返回任何结果", nil)
	}

	assistantMessage := response.Choices[0].Message.Content

	// 先写用户消息再写AI回复
	s.Library.AddChatMessage(chapterID, models.RoleUser, userMessage)
	s.Library.AddChatMessage(chapterID, models.RoleAssistant, assistantMessage)

	return assistantMessage, nil
}

// StreamMessage 以流式方式发送消息，增量内容通过事件通道返回。
// 前置条件失败和连接失败通过返回值报告；连接建立后上游返回非200时，
// 通道内发出一个StreamError事件后关闭。
// 流结束（含客户端断开）时，只要已累积到内容就把两条消息写入聊天记录。
func (s *ChatService) StreamMessage(ctx context.Context, chapterID, userMessage string) (<-chan StreamEvent, error) {
	chapter, ok := s.Library.GetChapter(chapterID)
	if !ok {
		return nil, apperrors.NewNotFoundError("章节不存在", nil)
	}

	settings, err := s.resolveSettings()
	if err != nil {
		return nil, err
	}

	messages := s.buildMessages(chapter, s.Library.GetChatHistory(chapterID), userMessage)
	endpoint := BuildChatEndpoint(settings.APIURL)

	payload := map[string]interface{}{
		"model":       settings.Model,
		"messages":    messages,
		"temperature": 0.7,
		"stream":      true,
	}

	streamCtx, cancel := context.WithTimeout(ctx, streamTimeout)

	httpResp, err := s.postChat(streamCtx, endpoint, settings.APIKey, payload)
	if err != nil {
		cancel()
		return nil, mapTransportError(err, "AI请求超时")
	}

	// 连接已建立但上游报错：错误作为事件发出，不持久化任何消息
	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		cancel()

		respChan := make(chan StreamEvent, 1)
		respChan <- StreamEvent{Type: StreamError, Content: fmt.Sprintf("AI API错误: %s", string(body))}
		close(respChan)
		return respChan, nil
	}

	respChan := make(chan StreamEvent)

	go func() {
		defer cancel()
		defer httpResp.Body.Close()
		defer close(respChan)

		var assistantFull strings.Builder

		// 无论流如何结束，只要有累积内容就落库
		defer func() {
			if assistantFull.Len() > 0 {
				s.Library.AddChatMessage(chapterID, models.RoleUser, userMessage)
				s.Library.AddChatMessage(chapterID, models.RoleAssistant, assistantFull.String())
			}
		}()

		// send 在消费方停止读取时通过上下文解除阻塞
		send := func(ev StreamEvent) bool {
			select {
			case respChan <- ev:
				return true
			case <-streamCtx.Done():
				return false
			}
		}

		reader := bufio.NewReader(httpResp.Body)
		for {
			select {
			case <-streamCtx.Done():
				return
			default:
				line, err := reader.ReadString('\n')
				if err != nil {
					return
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}

				// OpenAI兼容流式协议通常以 "data: " 开头
				dataStr := line
				if strings.HasPrefix(line, "data: ") {
					dataStr = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
				}

				if dataStr == "[DONE]" {
					send(StreamEvent{Type: StreamDone})
					return
				}

				var chunk struct {
					Choices []struct {
						Delta struct {
							Content string `json:"content"`
						} `json:"delta"`
					} `json:"choices"`
				}
				if err := json.Unmarshal([]byte(dataStr), &chunk); err != nil {
					// 非JSON行，直接透传
					if !send(StreamEvent{Type: StreamRaw, Content: dataStr}) {
						return
					}
					continue
				}

				if len(chunk.Choices) == 0 {
					continue
				}

				piece := chunk.Choices[0].Delta.Content
				if piece != "" {
					assistantFull.WriteString(piece)
					if !send(StreamEvent{Type: StreamDelta, Content: piece}) {
						return
					}
				}
			}
		}
	}()

	return respChan, nil
}

// TestConnection 用给定配置测试AI连通性，缺失字段回退到已保存的设置
func (s *ChatService) TestConnection(ctx context.Context, apiURL, apiKey, model string) (*ConnectionTestResult, error) {
	if apiURL == "" || apiKey == "" || model == "" {
		if saved := s.Library.GetAISettings(); saved != nil {
			if apiURL == "" {
				apiURL = saved.APIURL
			}
			if apiKey == "" {
				apiKey = saved.APIKey
			}
			if model == "" {
				model = saved.Model
			}
		}
	}

	if apiURL == "" || apiKey == "" || model == "" {
		return nil, apperrors.NewValidationError("请先填写完整的AI配置", nil)
	}

	endpoint := BuildChatEndpoint(apiURL)

	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": "你是一个测试助手，用于验证API连通性，请简单回答。"},
			{"role": "user", "content": "如果你收到这条信息，请回复：连接正常"},
		},
		"temperature": 0,
	}

	reqCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	start := time.Now()
	httpResp, err := s.postChat(reqCtx, endpoint, apiKey, payload)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		return nil, mapTransportError(err, "AI连接测试超时")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("AI API测试失败: %s", string(body)), nil)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, apperrors.NewUpstreamError("解析AI响应失败", err)
	}
	if len(response.Choices) == 0 {
		return nil, apperrors.NewUpstreamError("AI未返回任何结果", nil)
	}

	preview := []rune(response.Choices[0].Message.Content)
	if len(preview) > 120 {
		preview = preview[:120]
	}

	return &ConnectionTestResult{
		Message:         "AI连接正常，可以使用",
		ResponsePreview: string(preview),
		DurationMS:      duration,
	}, nil
}
