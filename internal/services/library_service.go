// internal/services/library_service.go
package services

import (
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Samuelxiaozhuofeng/ttsfm/internal/models"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/storage"
	"github.com/Samuelxiaozhuofeng/ttsfm/internal/utils"
)

// libraryFile 书库数据文件名
const libraryFile = "library_data.json"

// LibraryService 管理书库数据：章节、播放进度、AI设置和聊天记录。
// 所有数据常驻内存，每次变更同步写回磁盘。
type LibraryService struct {
	Storage *storage.FileStorage

	mu    sync.RWMutex
	data  *models.LibraryData
	order []string // 章节插入顺序，created_at相同时用于稳定排序
}

// NewLibraryService 创建书库服务并加载已有数据。
// 数据文件缺失或损坏时从空库启动，不阻止服务运行。
func NewLibraryService(fileStorage *storage.FileStorage) *LibraryService {
	s := &LibraryService{
		Storage: fileStorage,
		data:    models.NewLibraryData(),
	}
	s.load()
	return s
}

// load 从磁盘加载书库数据并重建插入顺序
func (s *LibraryService) load() {
	if !s.Storage.FileExists("", libraryFile) {
		return
	}

	loaded := models.NewLibraryData()
	if err := s.Storage.LoadJSONFile("", libraryFile, loaded); err != nil {
		utils.GetLogger().Warn("library best-effort load library.json failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	// 反序列化可能产生nil映射
	if loaded.Chapters == nil {
		loaded.Chapters = make(map[string]*models.Chapter)
	}
	if loaded.Progress == nil {
		loaded.Progress = make(map[string]*models.ReadingProgress)
	}
	if loaded.ChatHistory == nil {
		loaded.ChatHistory = make(map[string][]models.ChatMessage)
	}
	s.data = loaded

	// 按创建时间重建插入顺序，时间相同时按ID保证确定性
	s.order = make([]string, 0, len(s.data.Chapters))
	for id := range s.data.Chapters {
		s.order = append(s.order, id)
	}
	sort.Slice(s.order, func(i, j int) bool {
		ci, cj := s.data.Chapters[s.order[i]], s.data.Chapters[s.order[j]]
		if !ci.CreatedAt.Equal(cj.CreatedAt) {
			return ci.CreatedAt.Before(cj.CreatedAt)
		}
		return ci.ID < cj.ID
	})
}

// save 将当前数据写回磁盘。调用方必须持有写锁。
// 写入失败只记录日志，内存状态保持可用。
func (s *LibraryService) save() {
	if err := s.Storage.SaveJSONFile("", libraryFile, s.data); err != nil {
		utils.GetLogger().Warn("library best-effort save library.json failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// AddChapter 新增章节并初始化其播放进度
func (s *LibraryService) AddChapter(id, title, content, audioFilename string) *models.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	chapter := &models.Chapter{
		ID:            id,
		Title:         title,
		Content:       content,
		AudioFilename: audioFilename,
		CreatedAt:     now,
		CharCount:     utf8.RuneCountInString(content),
	}

	s.data.Chapters[id] = chapter
	s.data.Progress[id] = &models.ReadingProgress{
		CurrentTime: 0,
		LastRead:    now,
	}
	s.order = append(s.order, id)

	s.save()
	return chapter
}

// GetChapter 查询单个章节
func (s *LibraryService) GetChapter(id string) (*models.Chapter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chapter, ok := s.data.Chapters[id]
	return chapter, ok
}

// GetAllChapters 返回全部章节，按创建时间倒序，时间相同时保持插入顺序
func (s *LibraryService) GetAllChapters() []*models.Chapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chapters := make([]*models.Chapter, 0, len(s.order))
	for _, id := range s.order {
		if chapter, ok := s.data.Chapters[id]; ok {
			chapters = append(chapters, chapter)
		}
	}

	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].CreatedAt.After(chapters[j].CreatedAt)
	})

	return chapters
}

// ChapterCount 返回章节总数
func (s *LibraryService) ChapterCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data.Chapters)
}

// DeleteChapter 删除章节及其进度和聊天记录，返回关联的音频文件名。
// 章节不存在时不做任何修改。
func (s *LibraryService) DeleteChapter(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chapter, ok := s.data.Chapters[id]
	if !ok {
		return "", false
	}

	audioFilename := chapter.AudioFilename
	delete(s.data.Chapters, id)
	delete(s.data.Progress, id)
	delete(s.data.ChatHistory, id)

	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.save()
	return audioFilename, true
}

// GetProgress 查询章节的播放进度
func (s *LibraryService) GetProgress(id string) (*models.ReadingProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	progress, ok := s.data.Progress[id]
	return progress, ok
}

// UpdateProgress 更新章节的播放进度。未知章节静默忽略。
func (s *LibraryService) UpdateProgress(id string, currentTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress, ok := s.data.Progress[id]
	if !ok {
		return
	}

	progress.CurrentTime = currentTime
	progress.LastRead = time.Now()
	s.save()
}

// GetAISettings 返回当前AI设置，未配置时返回nil
func (s *LibraryService) GetAISettings() *models.AISettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.AISettings
}

// SaveAISettings 整体替换AI设置
func (s *LibraryService) SaveAISettings(apiURL, apiKey, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.AISettings = &models.AISettings{
		APIURL:    apiURL,
		APIKey:    apiKey,
		Model:     model,
		UpdatedAt: time.Now(),
	}
	s.save()
}

// GetChatHistory 返回章节的完整聊天记录
func (s *LibraryService) GetChatHistory(chapterID string) []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data.ChatHistory[chapterID]
	result := make([]models.ChatMessage, len(history))
	copy(result, history)
	return result
}

// AddChatMessage 追加一条聊天消息，首条消息时自动建立记录
func (s *LibraryService) AddChatMessage(chapterID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.ChatHistory[chapterID] = append(s.data.ChatHistory[chapterID], models.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.save()
}

// ClearChatHistory 清空章节的聊天记录。无记录时不触发写盘。
func (s *LibraryService) ClearChatHistory(chapterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.ChatHistory[chapterID]; !ok {
		return
	}

	delete(s.data.ChatHistory, chapterID)
	s.save()
}
