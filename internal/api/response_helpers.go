// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"

	apperrors "github.com/Samuelxiaozhuofeng/ttsfm/internal/errors"
	"github.com/gin-gonic/gin"
)

// statusForError 根据错误类型确定HTTP状态码
func statusForError(err error) int {
	switch {
	case apperrors.IsValidationError(err):
		return http.StatusBadRequest
	case apperrors.IsConfigMissingError(err):
		return http.StatusBadRequest
	case apperrors.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		// 上游错误、网络错误和其他内部错误
		return http.StatusInternalServerError
	}
}

// respondError 以统一的 {"error": 消息} 形式返回错误。
// AppError只暴露对外消息，内部原因留在错误链里。
func respondError(c *gin.Context, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	c.JSON(statusForError(err), gin.H{"error": message})
}

// audioInlineResponse 内联播放音频文件
func audioInlineResponse(c *gin.Context, path string) {
	c.Header("Content-Type", "audio/mpeg")
	c.File(path)
}

// audioDownloadResponse 以附件形式下载音频文件
func audioDownloadResponse(c *gin.Context, path, filename string) {
	c.Header("Content-Type", "audio/mpeg")
	c.FileAttachment(path, filename)
}
