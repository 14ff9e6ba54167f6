// internal/api/handlers_test.go
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Samuelxiaozhuofeng/ttsfm/internal/services"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/storage"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/tts"
)

// newTestRouter 组装真实服务栈并注册API路由，存储落在临时目录
func newTestRouter(t *testing.T, ttsURL string) (*gin.Engine, *services.LibraryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dataStore, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}
	audioStore, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}

	library := services.NewLibraryService(dataStore)
	speech := services.NewSpeechService(tts.NewClient(ttsURL, "test-key", "tts-model"), library, audioStore)
	chat := services.NewChatService(library)

	r := gin.New()
	registerAPIRoutes(r, NewHandler(speech, library, chat))
	return r, library
}

// doJSON 发送JSON请求并返回响应记录器
func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody 解析JSON响应体
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v\nbody: %s", err, w.Body.String())
	}
	return body
}

// newTTSServer 创建返回固定音频数据的TTS上游
func newTTSServer(audio string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(audio))
	}))
}

// TestGetVoicesEndpoint 测试发音人列表接口
func TestGetVoicesEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, "http://unused")

	w := doJSON(r, "GET", "/api/voices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	voices, ok := body["voices"].([]interface{})
	if !ok || len(voices) != 6 {
		t.Fatalf("expected 6 voices, got %v", body["voices"])
	}
	if voices[0] != "alloy" {
		t.Errorf("expected alloy first, got %v", voices[0])
	}
}

// TestGenerateEndpoint 测试语音生成接口及音频下载播放
func TestGenerateEndpoint(t *testing.T) {
	server := newTTSServer("GENERATED_AUDIO")
	defer server.Close()

	r, _ := newTestRouter(t, server.URL)

	w := doJSON(r, "POST", "/api/generate", `{"text":"你好世界","voice":"nova"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["success"] != true {
		t.Error("expected success true")
	}
	if body["text_length"] != float64(4) {
		t.Errorf("expected text_length 4, got %v", body["text_length"])
	}
	if body["is_long_text"] != false {
		t.Errorf("expected is_long_text false, got %v", body["is_long_text"])
	}
	if body["message"] != "Speech generated successfully (4 characters)" {
		t.Errorf("unexpected message: %v", body["message"])
	}

	filename, _ := body["filename"].(string)
	if !strings.HasPrefix(filename, "tts_") || !strings.HasSuffix(filename, ".mp3") {
		t.Fatalf("unexpected filename: %s", filename)
	}

	t.Run("Download", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/download/"+filename, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Header().Get("Content-Disposition"), "attachment") {
			t.Errorf("expected attachment disposition, got %s", w.Header().Get("Content-Disposition"))
		}
		if w.Body.String() != "GENERATED_AUDIO" {
			t.Errorf("unexpected audio body: %q", w.Body.String())
		}
	})

	t.Run("Play", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/play/"+filename, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Header().Get("Content-Type"), "audio/") {
			t.Errorf("expected audio content type, got %s", w.Header().Get("Content-Type"))
		}
	})
}

// TestGenerateEndpointValidation 测试语音生成的参数校验
func TestGenerateEndpointValidation(t *testing.T) {
	r, _ := newTestRouter(t, "http://unused")

	t.Run("Blank Text", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/generate", `{"text":"   "}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if decodeBody(t, w)["error"] != "No text provided" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/generate", `{broken`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if decodeBody(t, w)["error"] != "无效的请求数据" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})
}

// TestUploadEndpoint 测试文本文件上传
func TestUploadEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, "http://unused")

	upload := func(t *testing.T, content []byte) *httptest.ResponseRecorder {
		t.Helper()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "novel.txt")
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		fw.Write(content)
		mw.Close()

		req := httptest.NewRequest("POST", "/api/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("Valid Text File", func(t *testing.T) {
		w := upload(t, []byte("章节文本内容"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		body := decodeBody(t, w)
		if body["text"] != "章节文本内容" {
			t.Errorf("expected file content returned, got %v", body["text"])
		}
		if body["message"] != "File uploaded successfully" {
			t.Errorf("unexpected message: %v", body["message"])
		}
	})

	t.Run("No File", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/upload", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if decodeBody(t, w)["error"] != "No file uploaded" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})

	t.Run("Invalid UTF8", func(t *testing.T) {
		w := upload(t, []byte{0xff, 0xfe, 0xfd})
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		if decodeBody(t, w)["error"] != "File is not valid UTF-8 text" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})
}

// TestAudioNotFound 测试音频文件不存在时的404
func TestAudioNotFound(t *testing.T) {
	r, _ := newTestRouter(t, "http://unused")

	for _, path := range []string{"/api/download/missing.mp3", "/api/play/missing.mp3"} {
		w := doJSON(r, "GET", path, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
		if decodeBody(t, w)["error"] != "File not found" {
			t.Errorf("%s: unexpected error: %s", path, w.Body.String())
		}
	}
}

// TestLibraryFlow 测试书库的完整生命周期
func TestLibraryFlow(t *testing.T) {
	server := newTTSServer("CHAPTER_AUDIO")
	defer server.Close()

	r, _ := newTestRouter(t, server.URL)

	// 添加章节
	w := doJSON(r, "POST", "/api/library/chapter", `{"title":"第一章","text":"这是正文"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("add chapter: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["message"] != "Chapter added successfully (4 characters)" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	chapter, ok := body["chapter"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected chapter object, got %v", body["chapter"])
	}
	chapterID, _ := chapter["id"].(string)
	audioFilename, _ := chapter["audio_filename"].(string)
	if !strings.HasPrefix(chapterID, "chapter_") {
		t.Fatalf("unexpected chapter id: %s", chapterID)
	}
	if chapter["char_count"] != float64(4) {
		t.Errorf("expected char_count 4, got %v", chapter["char_count"])
	}

	// 章节列表
	w = doJSON(r, "GET", "/api/library/chapters", "")
	body = decodeBody(t, w)
	if body["total"] != float64(1) {
		t.Errorf("expected total 1, got %v", body["total"])
	}

	// 单章节详情带进度
	w = doJSON(r, "GET", "/api/library/chapter/"+chapterID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get chapter: expected 200, got %d", w.Code)
	}
	body = decodeBody(t, w)
	progress, ok := body["progress"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected progress object, got %v", body["progress"])
	}
	if progress["current_time"] != float64(0) {
		t.Errorf("expected initial progress 0, got %v", progress["current_time"])
	}

	// 更新进度
	w = doJSON(r, "POST", "/api/library/progress/"+chapterID, `{"current_time":42.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update progress: expected 200, got %d", w.Code)
	}
	if decodeBody(t, w)["message"] != "Progress updated" {
		t.Errorf("unexpected message: %s", w.Body.String())
	}

	w = doJSON(r, "GET", "/api/library/chapter/"+chapterID, "")
	progress = decodeBody(t, w)["progress"].(map[string]interface{})
	if progress["current_time"] != 42.5 {
		t.Errorf("expected progress 42.5, got %v", progress["current_time"])
	}

	// 删除章节后音频一并清理
	w = doJSON(r, "DELETE", "/api/library/chapter/"+chapterID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete chapter: expected 200, got %d", w.Code)
	}
	if decodeBody(t, w)["message"] != "Chapter deleted successfully" {
		t.Errorf("unexpected message: %s", w.Body.String())
	}

	w = doJSON(r, "GET", "/api/library/chapter/"+chapterID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
	w = doJSON(r, "GET", "/api/download/"+audioFilename, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected audio gone after delete, got %d", w.Code)
	}

	// 重复删除返回404
	w = doJSON(r, "DELETE", "/api/library/chapter/"+chapterID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on double delete, got %d", w.Code)
	}
	if decodeBody(t, w)["error"] != "Chapter not found" {
		t.Errorf("unexpected error: %s", w.Body.String())
	}
}

// TestAddChapterValidation 测试添加章节的参数校验
func TestAddChapterValidation(t *testing.T) {
	r, _ := newTestRouter(t, "http://unused")

	t.Run("Missing Title", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/library/chapter", `{"text":"正文"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if decodeBody(t, w)["error"] != "No title provided" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})

	t.Run("Missing Content", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/library/chapter", `{"title":"标题"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if decodeBody(t, w)["error"] != "No content provided" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})
}

// TestAISettingsEndpoint 测试AI设置的保存与遮蔽读取
func TestAISettingsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, "http://unused")

	// 未配置时settings为null
	w := doJSON(r, "GET", "/api/ai/settings", "")
	body := decodeBody(t, w)
	if body["success"] != true || body["settings"] != nil {
		t.Errorf("expected null settings, got %v", body["settings"])
	}

	// 缺少地址或模型
	w = doJSON(r, "POST", "/api/ai/settings", `{"api_key":"sk-12345678"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if decodeBody(t, w)["error"] != "请填写API地址和模型名称" {
		t.Errorf("unexpected error: %s", w.Body.String())
	}

	// 首次保存必须携带密钥
	w = doJSON(r, "POST", "/api/ai/settings", `{"api_url":"https://api.example.com","model":"gpt-4o"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if decodeBody(t, w)["error"] != "请输入API密钥" {
		t.Errorf("unexpected error: %s", w.Body.String())
	}

	// 完整保存
	w = doJSON(r, "POST", "/api/ai/settings",
		`{"api_url":"https://api.example.com","api_key":"sk-12345678","model":"gpt-4o"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["message"] != "AI设置已保存" {
		t.Errorf("unexpected message: %s", w.Body.String())
	}

	// 读取时密钥只以遮蔽形式出现
	w = doJSON(r, "GET", "/api/ai/settings", "")
	settings, ok := decodeBody(t, w)["settings"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected settings object, got %s", w.Body.String())
	}
	if settings["api_url"] != "https://api.example.com" || settings["model"] != "gpt-4o" {
		t.Errorf("unexpected settings: %v", settings)
	}
	if settings["api_key_masked"] != "***5678" {
		t.Errorf("expected masked key ***5678, got %v", settings["api_key_masked"])
	}
	if settings["has_api_key"] != true {
		t.Error("expected has_api_key true")
	}
	if _, exists := settings["api_key"]; exists {
		t.Error("raw api key must not be returned")
	}

	// 更新时密钥留空沿用旧值
	w = doJSON(r, "POST", "/api/ai/settings", `{"api_url":"https://api2.example.com","model":"gpt-4o-mini"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(r, "GET", "/api/ai/settings", "")
	settings = decodeBody(t, w)["settings"].(map[string]interface{})
	if settings["model"] != "gpt-4o-mini" {
		t.Errorf("expected model updated, got %v", settings["model"])
	}
	if settings["has_api_key"] != true || settings["api_key_masked"] != "***5678" {
		t.Errorf("expected key kept on update, got %v", settings)
	}
}

// TestMaskAPIKey 测试密钥遮蔽规则
func TestMaskAPIKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"sk-12345678", "***5678"},
		{"abcd", "***"},
		{"ab", "***"},
		{"", "***"},
	}

	for _, tc := range cases {
		if got := maskAPIKey(tc.key); got != tc.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

// TestAIConnectionEndpoint 测试AI连通性测试接口
func TestAIConnectionEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"连接正常"}}]}`))
	}))
	defer server.Close()

	r, _ := newTestRouter(t, "http://unused")

	t.Run("Explicit Config", func(t *testing.T) {
		payload := `{"api_url":"` + server.URL + `","api_key":"k","model":"m"}`
		w := doJSON(r, "POST", "/api/ai/test", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		body := decodeBody(t, w)
		if body["message"] != "AI连接正常，可以使用" {
			t.Errorf("unexpected message: %v", body["message"])
		}
		if body["response_preview"] != "连接正常" {
			t.Errorf("unexpected preview: %v", body["response_preview"])
		}
		if _, ok := body["duration_ms"].(float64); !ok {
			t.Errorf("expected duration_ms number, got %v", body["duration_ms"])
		}
	})

	t.Run("Unconfigured", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/ai/test", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if decodeBody(t, w)["error"] != "请先填写完整的AI配置" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})
}

// TestChatMessageEndpoint 测试非流式聊天及历史记录接口
func TestChatMessageEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"这是AI的回答"}}]}`))
	}))
	defer server.Close()

	r, library := newTestRouter(t, "http://unused")
	library.AddChapter("ch1", "第一章", "章节正文", "")
	library.SaveAISettings(server.URL, "sk-test", "test-model")

	t.Run("Missing Params", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/chat/message", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if decodeBody(t, w)["error"] != "缺少必要参数" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})

	t.Run("Unknown Chapter", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/chat/message", `{"chapter_id":"ghost","message":"你好"}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
		}
		if decodeBody(t, w)["error"] != "章节不存在" {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/chat/message", `{"chapter_id":"ch1","message":"这本书讲什么？"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		body := decodeBody(t, w)
		if body["message"] != "这是AI的回答" {
			t.Errorf("unexpected reply: %v", body["message"])
		}

		// 对话写入历史
		w = doJSON(r, "GET", "/api/chat/history/ch1", "")
		history, ok := decodeBody(t, w)["history"].([]interface{})
		if !ok || len(history) != 2 {
			t.Fatalf("expected 2 history messages, got %v", len(history))
		}

		// 清空历史
		w = doJSON(r, "DELETE", "/api/chat/history/ch1", "")
		if decodeBody(t, w)["message"] != "聊天记录已清空" {
			t.Errorf("unexpected message: %s", w.Body.String())
		}

		w = doJSON(r, "GET", "/api/chat/history/ch1", "")
		history, _ = decodeBody(t, w)["history"].([]interface{})
		if len(history) != 0 {
			t.Errorf("expected empty history after clear, got %d", len(history))
		}
	})
}

// TestChatUnconfigured 测试未配置AI时聊天报错
func TestChatUnconfigured(t *testing.T) {
	r, library := newTestRouter(t, "http://unused")
	library.AddChapter("ch1", "第一章", "章节正文", "")

	w := doJSON(r, "POST", "/api/chat/message", `{"chapter_id":"ch1","message":"你好"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["error"] != "请先配置AI设置" {
		t.Errorf("unexpected error: %s", w.Body.String())
	}
}

// TestChatStreamEndpoint 测试流式聊天的SSE输出与历史持久化
func TestChatStreamEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	r, library := newTestRouter(t, "http://unused")
	library.AddChapter("ch1", "第一章", "章节正文", "")
	library.SaveAISettings(server.URL, "sk-test", "test-model")

	w := doJSON(r, "POST", "/api/chat/message", `{"chapter_id":"ch1","message":"你好","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected SSE content type, got %s", ct)
	}

	// 增量内容以原样文本下发，结束标记不转发
	if w.Body.String() != "data: Hel\n\ndata: lo\n\n" {
		t.Errorf("unexpected SSE body: %q", w.Body.String())
	}

	history := library.GetChatHistory("ch1")
	if len(history) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(history))
	}
	if history[1].Content != "Hello" {
		t.Errorf("expected accumulated reply persisted, got %s", history[1].Content)
	}
}

// TestChatStreamUpstreamError 测试流式聊天上游报错走SSE错误帧
func TestChatStreamUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("unauthorized"))
	}))
	defer server.Close()

	r, library := newTestRouter(t, "http://unused")
	library.AddChapter("ch1", "第一章", "章节正文", "")
	library.SaveAISettings(server.URL, "sk-test", "test-model")

	w := doJSON(r, "POST", "/api/chat/message", `{"chapter_id":"ch1","message":"你好","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with SSE error frame, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "data: AI API错误: unauthorized") {
		t.Errorf("expected error frame, got %q", w.Body.String())
	}
	if len(library.GetChatHistory("ch1")) != 0 {
		t.Error("failed stream should not persist messages")
	}
}

// TestCORSMiddleware 测试跨域响应头与预检请求
func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(corsMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	w := doJSON(r, "GET", "/ping", "")
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard origin, got %s", w.Header().Get("Access-Control-Allow-Origin"))
	}

	req := httptest.NewRequest("OPTIONS", "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
}
