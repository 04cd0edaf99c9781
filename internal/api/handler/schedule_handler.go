package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nvaziri/pgvault/internal/api/dto"
	"github.com/nvaziri/pgvault/internal/api/util"
	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
	"github.com/nvaziri/pgvault/internal/core/service"
)

// Allowed fields for schedule queries and ordering
var (
	scheduleQueryFields = []string{"id", "name", "frequency", "active", "created_at", "updated_at"}
	scheduleOrderFields = []string{"id", "name", "created_at", "updated_at", "next_run_at"}
)

// ScheduleRegistrar keeps cron timers in sync with schedule writes.
type ScheduleRegistrar interface {
	ScheduleBackup(schedule *domain.Schedule) error
	StopSchedule(scheduleID int64)
}

type ScheduleHandler struct {
	scheduleService *service.ScheduleService
	registrar       ScheduleRegistrar
}

func NewScheduleHandler(scheduleService *service.ScheduleService, registrar ScheduleRegistrar) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		registrar:       registrar,
	}
}

// CreateSchedule handles POST /backup-schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	schedule := domain.NewSchedule(req.Name, domain.ScheduleFrequency(req.Frequency), req.TimeOfDay, req.RetentionDays)
	schedule.DayOfWeek = req.DayOfWeek
	schedule.DayOfMonth = req.DayOfMonth
	if req.Active != nil {
		schedule.Active = *req.Active
	}

	if err := h.scheduleService.CreateSchedule(c.Request.Context(), schedule); err != nil {
		respondServiceError(c, err)
		return
	}

	if h.registrar != nil {
		if err := h.registrar.ScheduleBackup(schedule); err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal Server Error",
				Message: fmt.Sprintf("schedule saved but timer registration failed: %v", err),
				Code:    http.StatusInternalServerError,
			})
			return
		}
	}

	c.JSON(http.StatusCreated, toScheduleResponse(schedule))
}

// GetSchedule handles GET /backup-schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid schedule ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	schedule, err := h.scheduleService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: fmt.Sprintf("Schedule not found: %d", id),
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, toScheduleResponse(schedule))
}

// ListSchedules handles GET /backup-schedules, ordered by name unless
// an explicit order is given.
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))

	filter := repository.ScheduleFilter{
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

		if err := util.ValidateFilterFields(filters, scheduleQueryFields); err != nil {
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

		if err := util.ValidateOrderFields(orders, scheduleOrderFields); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad Request",
				Message: err.Error(),
				Code:    http.StatusBadRequest,
			})
			return
		}

		filter.Order = orders
	} else {
		filter.Order = []util.OrderClause{{Field: "name", Direction: util.OrderAsc}}
	}

	schedules, err := h.scheduleService.ListSchedules(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal Server Error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	count, _ := h.scheduleService.CountSchedules(c.Request.Context(), filter)

	totalPages := 0
	if perPage > 0 {
		totalPages = (count + perPage - 1) / perPage
	}

	response := dto.ScheduleListResponse{
		Items: make([]dto.ScheduleResponse, len(schedules)),
		Pagination: dto.PaginationInfo{
			Total:      count,
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
		},
	}

	for i, schedule := range schedules {
		response.Items[i] = toScheduleResponse(schedule)
	}

	c.JSON(http.StatusOK, response)
}

// UpdateSchedule handles PUT /backup-schedules/:id
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid schedule ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	schedule, err := h.scheduleService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: fmt.Sprintf("Schedule not found: %d", id),
			Code:    http.StatusNotFound,
		})
		return
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.Frequency != nil {
		schedule.Frequency = domain.ScheduleFrequency(*req.Frequency)
		// stale day fields from the previous frequency would no
		// longer validate; the request supplies the relevant one
		schedule.DayOfWeek = nil
		schedule.DayOfMonth = nil
	}
	if req.TimeOfDay != nil {
		schedule.TimeOfDay = *req.TimeOfDay
	}
	if req.DayOfWeek != nil {
		schedule.DayOfWeek = req.DayOfWeek
	}
	if req.DayOfMonth != nil {
		schedule.DayOfMonth = req.DayOfMonth
	}
	if req.RetentionDays != nil {
		schedule.RetentionDays = *req.RetentionDays
	}
	if req.Active != nil {
		schedule.Active = *req.Active
	}

	if err := h.scheduleService.UpdateSchedule(c.Request.Context(), schedule); err != nil {
		respondServiceError(c, err)
		return
	}

	if h.registrar != nil {
		if err := h.registrar.ScheduleBackup(schedule); err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal Server Error",
				Message: fmt.Sprintf("schedule saved but timer registration failed: %v", err),
				Code:    http.StatusInternalServerError,
			})
			return
		}
	}

	c.JSON(http.StatusOK, toScheduleResponse(schedule))
}

// DeleteSchedule handles DELETE /backup-schedules/:id. The timer is
// stopped before the row goes away.
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid schedule ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if h.registrar != nil {
		h.registrar.StopSchedule(id)
	}

	if err := h.scheduleService.DeleteSchedule(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: fmt.Sprintf("Schedule not found: %d", id),
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

func toScheduleResponse(schedule *domain.Schedule) dto.ScheduleResponse {
	return dto.ScheduleResponse{
		ID:            schedule.ID,
		Name:          schedule.Name,
		Frequency:     string(schedule.Frequency),
		TimeOfDay:     schedule.TimeOfDay,
		DayOfWeek:     schedule.DayOfWeek,
		DayOfMonth:    schedule.DayOfMonth,
		RetentionDays: schedule.RetentionDays,
		Active:        schedule.Active,
		LastRunAt:     schedule.LastRunAt,
		NextRunAt:     schedule.NextRunAt,
		CreatedAt:     schedule.CreatedAt,
		UpdatedAt:     schedule.UpdatedAt,
	}
}

func respondServiceError(c *gin.Context, err error) {
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
}
