// internal/models/chat.go
package models

import (
	"time"
)

// 聊天消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 表示章节聊天记录中的一条消息
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AISettings 表示OpenAI兼容接口的全局配置（最多一条记录）
type AISettings struct {
	APIURL    string    `json:"api_url"`
	APIKey    string    `json:"api_key"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LibraryData 是持久化的书库文档根结构
// 四个顶级集合在文件中始终存在，即使为空
type LibraryData struct {
	Chapters    map[string]*Chapter         `json:"chapters"`
	Progress    map[string]*ReadingProgress `json:"progress"`
	AISettings  *AISettings                 `json:"ai_settings"`
	ChatHistory map[string][]ChatMessage    `json:"chat_history"`
}

// NewLibraryData 创建空的书库文档
func NewLibraryData() *LibraryData {
	return &LibraryData{
		Chapters:    make(map[string]*Chapter),
		Progress:    make(map[string]*ReadingProgress),
		ChatHistory: make(map[string][]ChatMessage),
	}
}
