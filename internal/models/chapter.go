// internal/models/chapter.go
package models

import (
	"time"
)

// Chapter 表示书库中的一个章节（文本 + 生成的音频）
type Chapter struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	AudioFilename string    `json:"audio_filename"`
	CreatedAt     time.Time `json:"created_at"`
	CharCount     int       `json:"char_count"`
}

// ReadingProgress 表示某章节的播放进度
type ReadingProgress struct {
	CurrentTime float64   `json:"current_time"` // 播放位置（秒）
	LastRead    time.Time `json:"last_read"`
}
