// internal/tts/client.go
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

// Client 封装OpenAI兼容的语音合成API
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// SpeechRequest 单次语音合成请求
type SpeechRequest struct {
	Input  string
	Voice  Voice
	Format AudioFormat
	Speed  float64
}

// SpeechResult 语音合成结果
type SpeechResult struct {
	Data   []byte
	Format AudioFormat
}

// NewClient 创建TTS客户端
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://www.openai.fm"
	}
	if model == "" {
		model = "gpt-4o-mini-tts"
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Synthesize 合成一段短文本，超过长度上限时返回错误
func (c *Client) Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("合成文本不能为空")
	}
	if utf8.RuneCountInString(req.Input) > MaxInputRunes {
		return nil, fmt.Errorf("文本长度超过 %d 字符上限，请使用 SynthesizeLong", MaxInputRunes)
	}

	return c.speech(ctx, req)
}

// SynthesizeLong 合成任意长度文本，自动分段合成并合并音频数据
func (c *Client) SynthesizeLong(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("合成文本不能为空")
	}

	chunks := SplitText(req.Input, MaxInputRunes)
	if len(chunks) == 1 {
		chunkReq := req
		chunkReq.Input = chunks[0]
		return c.speech(ctx, chunkReq)
	}

	var combined bytes.Buffer
	format := req.Format
	if format == "" {
		format = DefaultFormat
	}

	for i, chunk := range chunks {
		chunkReq := req
		chunkReq.Input = chunk

		result, err := c.speech(ctx, chunkReq)
		if err != nil {
			return nil, fmt.Errorf("合成第 %d/%d 段失败: %w", i+1, len(chunks), err)
		}
		combined.Write(result.Data)
	}

	return &SpeechResult{
		Data:   combined.Bytes(),
		Format: format,
	}, nil
}

// speech 执行单次合成请求
func (c *Client) speech(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	format := req.Format
	if format == "" {
		format = DefaultFormat
	}

	speed := req.Speed
	if speed == 0 {
		speed = 1.0
	}
	if speed < 0.25 || speed > 4.0 {
		return nil, fmt.Errorf("语速 %.2f 超出范围 [0.25, 4.0]", speed)
	}

	// 构建请求体
	requestBody := map[string]interface{}{
		"model":           c.model,
		"input":           req.Input,
		"voice":           string(voice),
		"response_format": string(format),
		"speed":           speed,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	// 创建HTTP请求
	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		c.baseURL+"/v1/audio/speech",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	// 发送请求
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	// 检查错误
	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("TTS API错误(%d): %s", httpResp.StatusCode, string(body))
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取音频数据失败: %w", err)
	}

	return &SpeechResult{
		Data:   data,
		Format: format,
	}, nil
}

// SaveToFile 将音频数据写入文件。
// path不含扩展名时按音频格式自动补全，返回实际写入的路径。
func (r *SpeechResult) SaveToFile(path string) (string, error) {
	ext := "." + string(r.Format)
	if !strings.HasSuffix(path, ext) {
		path += ext
	}

	if err := os.WriteFile(path, r.Data, 0644); err != nil {
		return "", fmt.Errorf("保存音频文件失败: %w", err)
	}

	return path, nil
}
