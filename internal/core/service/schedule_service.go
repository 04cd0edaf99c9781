package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
)

type ScheduleService struct {
	scheduleRepo repository.ScheduleRepository
	backupRepo   repository.BackupRepository
}

func NewScheduleService(
	scheduleRepo repository.ScheduleRepository,
	backupRepo repository.BackupRepository,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		backupRepo:   backupRepo,
	}
}

// CreateSchedule validates and persists a new schedule. Timer
// registration is the caller's concern; the API server re-registers
// after a successful create.
func (s *ScheduleService) CreateSchedule(ctx context.Context, schedule *domain.Schedule) error {
	if err := s.validateSchedule(schedule); err != nil {
		return err
	}

	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

// UpdateSchedule validates and persists changes to a schedule.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, schedule *domain.Schedule) error {
	if err := s.validateSchedule(schedule); err != nil {
		return err
	}

	schedule.UpdatedAt = time.Now().UTC()
	if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

// DeleteSchedule removes a schedule. Backup records keep a NULL
// schedule_id through the FK, so history survives.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id int64) error {
	if err := s.scheduleRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule by ID
func (s *ScheduleService) GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error) {
	return s.scheduleRepo.FindByID(ctx, id)
}

// ListSchedules lists schedules with filtering
func (s *ScheduleService) ListSchedules(ctx context.Context, filter repository.ScheduleFilter) ([]*domain.Schedule, error) {
	return s.scheduleRepo.List(ctx, filter)
}

// CountSchedules counts schedules with filtering
func (s *ScheduleService) CountSchedules(ctx context.Context, filter repository.ScheduleFilter) (int, error) {
	return s.scheduleRepo.Count(ctx, filter)
}

// ListActiveSchedules returns every schedule the scheduler should run.
func (s *ScheduleService) ListActiveSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	return s.scheduleRepo.FindAllActive(ctx)
}

func (s *ScheduleService) validateSchedule(schedule *domain.Schedule) error {
	if schedule.Name == "" {
		return NewServiceError(http.StatusBadRequest, "schedule name is required")
	}

	if _, _, err := schedule.ParseTimeOfDay(); err != nil {
		return NewServiceError(http.StatusBadRequest, err.Error())
	}

	// only the day field matching the frequency may be set
	switch schedule.Frequency {
	case domain.FrequencyDaily:
		if schedule.DayOfWeek != nil || schedule.DayOfMonth != nil {
			return NewServiceError(http.StatusBadRequest, "daily schedules take no day_of_week or day_of_month")
		}
	case domain.FrequencyWeekly:
		if schedule.DayOfMonth != nil {
			return NewServiceError(http.StatusBadRequest, "day_of_month does not apply to weekly schedules")
		}
		if schedule.DayOfWeek != nil && (*schedule.DayOfWeek < 0 || *schedule.DayOfWeek > 6) {
			return NewServiceError(http.StatusBadRequest, "day_of_week must be between 0 (Sunday) and 6 (Saturday)")
		}
	case domain.FrequencyMonthly:
		if schedule.DayOfWeek != nil {
			return NewServiceError(http.StatusBadRequest, "day_of_week does not apply to monthly schedules")
		}
		if schedule.DayOfMonth != nil && (*schedule.DayOfMonth < 1 || *schedule.DayOfMonth > 28) {
			return NewServiceError(http.StatusBadRequest, "day_of_month must be between 1 and 28")
		}
	default:
		return NewServiceError(http.StatusBadRequest, fmt.Sprintf("unknown frequency %q", schedule.Frequency))
	}

	if schedule.RetentionDays < 0 {
		return NewServiceError(http.StatusBadRequest, "retention_days cannot be negative")
	}

	return nil
}
