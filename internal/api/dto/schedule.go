package dto

import "time"

// CreateScheduleRequest represents the schedule creation request
type CreateScheduleRequest struct {
	Name          string `json:"name" binding:"required"`
	Frequency     string `json:"frequency" binding:"required,oneof=daily weekly monthly"`
	TimeOfDay     string `json:"time_of_day" binding:"required"` // "HH:MM" in UTC
	DayOfWeek     *int   `json:"day_of_week,omitempty"`          // 0-6 (Sunday-Saturday)
	DayOfMonth    *int   `json:"day_of_month,omitempty"`         // 1-28
	RetentionDays int    `json:"retention_days"`
	Active        *bool  `json:"active,omitempty"` // defaults to true
}

// UpdateScheduleRequest represents the schedule update request
type UpdateScheduleRequest struct {
	Name          *string `json:"name,omitempty"`
	Frequency     *string `json:"frequency,omitempty"`
	TimeOfDay     *string `json:"time_of_day,omitempty"`
	DayOfWeek     *int    `json:"day_of_week,omitempty"`
	DayOfMonth    *int    `json:"day_of_month,omitempty"`
	RetentionDays *int    `json:"retention_days,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}

// ScheduleResponse represents a schedule
type ScheduleResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Frequency     string     `json:"frequency"`
	TimeOfDay     string     `json:"time_of_day"`
	DayOfWeek     *int       `json:"day_of_week,omitempty"`
	DayOfMonth    *int       `json:"day_of_month,omitempty"`
	RetentionDays int        `json:"retention_days"`
	Active        bool       `json:"active"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ScheduleListResponse represents a list of schedules
type ScheduleListResponse struct {
	Items      []ScheduleResponse `json:"items"`
	Pagination PaginationInfo     `json:"pagination"`
}
