package repository

import (
	"context"
	"time"

	"github.com/nvaziri/pgvault/internal/api/util"
	"github.com/nvaziri/pgvault/internal/core/domain"
)

// ScheduleFilter embeds ListFilter for generic query/order/pagination
type ScheduleFilter struct {
	util.ListFilter
}

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	FindByID(ctx context.Context, id int64) (*domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ScheduleFilter) ([]*domain.Schedule, error)
	Count(ctx context.Context, filter ScheduleFilter) (int, error)

	// Find all active schedules (for cron registration)
	FindAllActive(ctx context.Context) ([]*domain.Schedule, error)

	// Record a successful fire of the schedule
	UpdateLastRun(ctx context.Context, id int64, lastRun time.Time, nextRun *time.Time) error

	// Refresh the projected fire time without touching last_run_at
	UpdateNextRun(ctx context.Context, id int64, nextRun *time.Time) error
}
