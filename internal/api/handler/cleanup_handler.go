package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nvaziri/pgvault/internal/api/dto"
	"github.com/nvaziri/pgvault/internal/core/service"
)

type CleanupHandler struct {
	cleanupService *service.CleanupService
}

func NewCleanupHandler(cleanupService *service.CleanupService) *CleanupHandler {
	return &CleanupHandler{
		cleanupService: cleanupService,
	}
}

// Cleanup handles POST /cleanup. Without a schedule_id the sweep
// covers every active schedule.
func (h *CleanupHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// No body means cleanup everything
		req.ScheduleID = nil
	}

	var deleted int
	var err error
	if req.ScheduleID != nil && *req.ScheduleID > 0 {
		deleted, err = h.cleanupService.CleanupBySchedule(c.Request.Context(), *req.ScheduleID)
	} else {
		deleted, err = h.cleanupService.CleanupOldBackups(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "Service Unavailable",
			Message: err.Error(),
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	c.JSON(http.StatusOK, dto.CleanupResponse{Deleted: deleted})
}
