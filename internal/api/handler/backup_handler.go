package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nvaziri/pgvault/internal/api/dto"
	"github.com/nvaziri/pgvault/internal/api/middleware"
	"github.com/nvaziri/pgvault/internal/api/util"
	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
	"github.com/nvaziri/pgvault/internal/core/service"
)

// Allowed fields for backup queries and ordering
var (
	backupQueryFields = []string{"id", "schedule_id", "backup_type", "status", "created_by", "created_at", "completed_at"}
	backupOrderFields = []string{"id", "created_at", "completed_at", "file_size"}
)

type BackupHandler struct {
	backupService *service.BackupService
}

func NewBackupHandler(backupService *service.BackupService) *BackupHandler {
	return &BackupHandler{
		backupService: backupService,
	}
}

// CreateBackup handles POST /backups/create. The run is synchronous:
// the response carries the finished record, completed or failed.
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	createdBy := "admin"
	if claims, ok := middleware.GetAuthClaims(c); ok {
		createdBy = claims.Subject
	}

	backup, err := h.backupService.CreateBackup(c.Request.Context(), service.CreateBackupInput{
		Type:      domain.BackupTypeManual,
		CreatedBy: createdBy,
	})
	if err != nil {
		var svcErr *service.ServiceError
		if errors.As(err, &svcErr) {
			c.JSON(svcErr.Code, dto.ErrorResponse{
				Error:   http.StatusText(svcErr.Code),
				Message: svcErr.Message,
				Code:    svcErr.Code,
			})
			return
		}
		// a failed run still yields a record worth returning
		if backup != nil {
			c.JSON(http.StatusInternalServerError, toBackupResponse(backup))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal Server Error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, toBackupResponse(backup))
}

// GetBackup handles GET /backups/:id
func (h *BackupHandler) GetBackup(c *gin.Context) {
	id := c.Param("id")

	backup, err := h.backupService.GetBackup(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: fmt.Sprintf("Backup not found: %s", id),
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, toBackupResponse(backup))
}

// ListBackups handles GET /backups, newest first unless an explicit
// order is given.
func (h *BackupHandler) ListBackups(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))

	filter := repository.BackupFilter{
		ListFilter: util.ListFilter{
			Page:    page,
			PerPage: perPage,
		},
	}

	if queryStr := c.Query("query"); queryStr != "" {
		filters, err := util.ParseQueryString(queryStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad Request",
				Message: err.Error(),
				Code:    http.StatusBadRequest,
			})
			return
		}

		if err := util.ValidateFilterFields(filters, backupQueryFields); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad Request",
				Message: err.Error(),
				Code:    http.StatusBadRequest,
			})
			return
		}

		filter.Filters = filters
	}

	if orderStr := c.Query("order"); orderStr != "" {
		orders, err := util.ParseOrderString(orderStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad Request",
				Message: err.Error(),
				Code:    http.StatusBadRequest,
			})
			return
		}

		if err := util.ValidateOrderFields(orders, backupOrderFields); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad Request",
				Message: err.Error(),
				Code:    http.StatusBadRequest,
			})
			return
		}

		filter.Order = orders
	} else {
		filter.Order = []util.OrderClause{{Field: "created_at", Direction: util.OrderDesc}}
	}

	backups, err := h.backupService.ListBackups(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal Server Error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	count, _ := h.backupService.CountBackups(c.Request.Context(), filter)

	totalPages := 0
	if perPage > 0 {
		totalPages = (count + perPage - 1) / perPage
	}

	response := dto.BackupListResponse{
		Items: make([]dto.BackupResponse, len(backups)),
		Pagination: dto.PaginationInfo{
			Total:      count,
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
		},
	}

	for i, backup := range backups {
		response.Items[i] = toBackupResponse(backup)
	}

	c.JSON(http.StatusOK, response)
}

// DownloadBackup handles GET /backups/:id/download, streaming the
// gzip archive as an attachment.
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	id := c.Param("id")

	result, err := h.backupService.DownloadBackup(c.Request.Context(), id)
	if err != nil {
		var svcErr *service.ServiceError
		if errors.As(err, &svcErr) {
			c.JSON(svcErr.Code, dto.ErrorResponse{
				Error:   http.StatusText(svcErr.Code),
				Message: svcErr.Message,
				Code:    svcErr.Code,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal Server Error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: fmt.Sprintf("Backup not found: %s", id),
			Code:    http.StatusNotFound,
		})
		return
	}
	defer result.Stream.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header("Content-Type", "application/gzip")
	if result.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(result.Size, 10))
	}
	c.Status(http.StatusOK)
	io.Copy(c.Writer, result.Stream)
}

// DeleteBackup handles DELETE /backups/:id
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.backupService.DeleteBackup(c.Request.Context(), id)
	if err != nil {
		var svcErr *service.ServiceError
		if errors.As(err, &svcErr) {
			c.JSON(svcErr.Code, dto.ErrorResponse{
				Error:   http.StatusText(svcErr.Code),
				Message: svcErr.Message,
				Code:    svcErr.Code,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal Server Error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: fmt.Sprintf("Backup not found: %s", id),
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

func toBackupResponse(backup *domain.Backup) dto.BackupResponse {
	return dto.BackupResponse{
		ID:           backup.ID,
		FileName:     backup.FileName,
		S3Key:        backup.S3Key,
		S3Bucket:     backup.S3Bucket,
		FileSize:     backup.FileSize,
		Type:         string(backup.Type),
		ScheduleID:   backup.ScheduleID,
		Status:       string(backup.Status),
		ErrorMessage: backup.ErrorMessage,
		CreatedBy:    backup.CreatedBy,
		CreatedAt:    backup.CreatedAt,
		CompletedAt:  backup.CompletedAt,
	}
}
