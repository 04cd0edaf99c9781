package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
)

// CleanupService enforces per-schedule retention. Only completed
// backups past the schedule's retention window are eligible; runs still
// in progress and failed records are never touched.
type CleanupService struct {
	backupRepo   repository.BackupRepository
	scheduleRepo repository.ScheduleRepository
	storage      *StorageService
	log          zerolog.Logger
}

func NewCleanupService(
	backupRepo repository.BackupRepository,
	scheduleRepo repository.ScheduleRepository,
	storage *StorageService,
	log zerolog.Logger,
) *CleanupService {
	return &CleanupService{
		backupRepo:   backupRepo,
		scheduleRepo: scheduleRepo,
		storage:      storage,
		log:          log,
	}
}

// CleanupOldBackups evaluates every active schedule and deletes expired
// backups, remote object first. Per-item failures are logged and
// skipped so one stuck object cannot block the rest of the sweep.
func (s *CleanupService) CleanupOldBackups(ctx context.Context) (int, error) {
	schedules, err := s.scheduleRepo.FindAllActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load schedules: %w", err)
	}

	deleted := 0
	for _, schedule := range schedules {
		if schedule.RetentionDays <= 0 {
			continue
		}
		deleted += s.cleanupSchedule(ctx, schedule)
	}
	return deleted, nil
}

// CleanupBySchedule runs retention for a single schedule.
func (s *CleanupService) CleanupBySchedule(ctx context.Context, scheduleID int64) (int, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("schedule not found: %w", err)
	}
	if schedule.RetentionDays <= 0 {
		return 0, nil
	}
	return s.cleanupSchedule(ctx, schedule), nil
}

func (s *CleanupService) cleanupSchedule(ctx context.Context, schedule *domain.Schedule) int {
	cutoff := time.Now().UTC().AddDate(0, 0, -schedule.RetentionDays)

	backups, err := s.backupRepo.FindBySchedule(ctx, schedule.ID)
	if err != nil {
		s.log.Warn().Err(err).Int64("schedule_id", schedule.ID).Msg("failed to load backups for cleanup")
		return 0
	}

	deleted := 0
	for _, backup := range backups {
		if backup.Status != domain.BackupStatusCompleted {
			continue
		}
		if !backup.CreatedAt.Before(cutoff) {
			continue
		}

		if backup.S3Key != "" {
			client := s.storage.Client()
			if client == nil {
				s.log.Warn().Str("backup_id", backup.ID).Msg("storage not configured, skipping remote cleanup")
				continue
			}
			if err := client.DeleteFile(ctx, backup.S3Key); err != nil {
				s.log.Warn().Err(err).Str("backup_id", backup.ID).Msg("failed to delete remote object")
				continue
			}
		}

		if err := s.backupRepo.Delete(ctx, backup.ID); err != nil {
			s.log.Warn().Err(err).Str("backup_id", backup.ID).Msg("failed to delete backup record")
			continue
		}

		s.log.Info().
			Str("backup_id", backup.ID).
			Int64("schedule_id", schedule.ID).
			Msg("expired backup removed")
		deleted++
	}
	return deleted
}
