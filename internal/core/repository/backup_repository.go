package repository

import (
	"context"

	"github.com/nvaziri/pgvault/internal/api/util"
	"github.com/nvaziri/pgvault/internal/core/domain"
)

// BackupFilter embeds ListFilter for generic query/order/pagination
type BackupFilter struct {
	util.ListFilter
}

type BackupRepository interface {
	Create(ctx context.Context, backup *domain.Backup) error
	FindByID(ctx context.Context, id string) (*domain.Backup, error)

	// Update persists the backup's mutable fields. Records already in a
	// terminal status are left untouched.
	Update(ctx context.Context, backup *domain.Backup) error

	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter BackupFilter) ([]*domain.Backup, error)
	Count(ctx context.Context, filter BackupFilter) (int, error)

	// Find backups for a given schedule, newest first.
	FindBySchedule(ctx context.Context, scheduleID int64) ([]*domain.Backup, error)
}
