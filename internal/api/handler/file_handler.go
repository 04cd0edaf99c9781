package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nvaziri/pgvault/internal/api/dto"
	"github.com/nvaziri/pgvault/internal/core/service"
)

// FileHandler serves public objects through a stable local path, so
// URLs embedded in content survive bucket or endpoint moves.
type FileHandler struct {
	storageService *service.StorageService
}

func NewFileHandler(storageService *service.StorageService) *FileHandler {
	return &FileHandler{storageService: storageService}
}

// ServeFile handles GET /files/*key
func (h *FileHandler) ServeFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: "File not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	client := h.storageService.Client()
	if client == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: "File not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	stream, err := client.GetFileStream(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: "File not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	defer stream.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, stream)
}
