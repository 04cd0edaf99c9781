package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
	"github.com/nvaziri/pgvault/internal/core/service"
)

// Scheduler drives scheduled backups off a single cron runner pinned to
// UTC. Each schedule maps to at most one cron entry; re-registering a
// schedule replaces its entry.
type Scheduler struct {
	cron         *cron.Cron
	backupSvc    *service.BackupService
	cleanupSvc   *service.CleanupService
	scheduleRepo repository.ScheduleRepository
	log          zerolog.Logger

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

func New(
	backupSvc *service.BackupService,
	cleanupSvc *service.CleanupService,
	scheduleRepo repository.ScheduleRepository,
	log zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		backupSvc:    backupSvc,
		cleanupSvc:   cleanupSvc,
		scheduleRepo: scheduleRepo,
		log:          log,
		entries:      make(map[int64]cron.EntryID),
	}
}

// Initialize registers every active schedule and starts the runner.
func (s *Scheduler) Initialize(ctx context.Context) error {
	schedules, err := s.scheduleRepo.FindAllActive(ctx)
	if err != nil {
		return err
	}

	for _, schedule := range schedules {
		if err := s.ScheduleBackup(schedule); err != nil {
			s.log.Error().Err(err).Int64("schedule_id", schedule.ID).Msg("failed to register schedule")
		}
	}

	s.cron.Start()
	s.log.Info().Int("schedules", len(schedules)).Msg("scheduler started")
	return nil
}

// ScheduleBackup registers or replaces the cron entry for a schedule.
// Inactive schedules only get their existing entry removed.
func (s *Scheduler) ScheduleBackup(schedule *domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[schedule.ID]; ok {
		s.cron.Remove(id)
		delete(s.entries, schedule.ID)
	}

	if !schedule.Active {
		return nil
	}

	spec, err := schedule.CronSpec()
	if err != nil {
		return err
	}

	scheduleID := schedule.ID
	entryID, err := s.cron.AddFunc(spec, func() {
		s.runScheduledBackup(scheduleID)
	})
	if err != nil {
		return err
	}
	s.entries[schedule.ID] = entryID

	next := s.cron.Entry(entryID).Schedule.Next(time.Now().UTC())
	schedule.NextRunAt = &next
	if err := s.scheduleRepo.UpdateNextRun(context.Background(), schedule.ID, &next); err != nil {
		s.log.Error().Err(err).Int64("schedule_id", schedule.ID).Msg("failed to persist next run")
	}

	s.log.Info().
		Int64("schedule_id", schedule.ID).
		Str("cron", spec).
		Time("next_run", next).
		Msg("schedule registered")
	return nil
}

// StopSchedule removes the cron entry for a schedule. Unknown ids are a
// no-op.
func (s *Scheduler) StopSchedule(scheduleID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[scheduleID]; ok {
		s.cron.Remove(id)
		delete(s.entries, scheduleID)
		s.log.Info().Int64("schedule_id", scheduleID).Msg("schedule stopped")
	}
}

// Reload drops all entries and re-registers from the database.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.mu.Lock()
	for id, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.mu.Unlock()

	schedules, err := s.scheduleRepo.FindAllActive(ctx)
	if err != nil {
		return err
	}
	for _, schedule := range schedules {
		if err := s.ScheduleBackup(schedule); err != nil {
			s.log.Error().Err(err).Int64("schedule_id", schedule.ID).Msg("failed to register schedule")
		}
	}
	return nil
}

// Shutdown stops the runner and waits for in-flight jobs.
func (s *Scheduler) Shutdown() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// EntryCount reports how many schedules are currently registered.
func (s *Scheduler) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// runScheduledBackup is the cron callback: run the backup, stamp the
// schedule's run bookkeeping, then sweep expired backups. Failures are
// logged and swallowed so one bad run never kills the runner.
func (s *Scheduler) runScheduledBackup(scheduleID int64) {
	ctx := context.Background()
	log := s.log.With().Int64("schedule_id", scheduleID).Logger()

	log.Info().Msg("scheduled backup starting")

	backup, runErr := s.backupSvc.CreateBackup(ctx, service.CreateBackupInput{
		Type:       domain.BackupTypeScheduled,
		ScheduleID: &scheduleID,
		CreatedBy:  "scheduler",
	})
	if runErr != nil {
		log.Error().Err(runErr).Msg("scheduled backup failed")
	} else {
		log.Info().Str("backup_id", backup.ID).Msg("scheduled backup finished")
	}

	now := time.Now().UTC()
	var next *time.Time
	s.mu.Lock()
	if entryID, ok := s.entries[scheduleID]; ok {
		n := s.cron.Entry(entryID).Schedule.Next(now)
		next = &n
	}
	s.mu.Unlock()

	// last_run_at marks successful runs only; the next fire time is
	// refreshed either way.
	if runErr == nil {
		if err := s.scheduleRepo.UpdateLastRun(ctx, scheduleID, now, next); err != nil {
			log.Error().Err(err).Msg("failed to record schedule run")
		}
	} else if err := s.scheduleRepo.UpdateNextRun(ctx, scheduleID, next); err != nil {
		log.Error().Err(err).Msg("failed to persist next run")
	}

	if _, err := s.cleanupSvc.CleanupBySchedule(ctx, scheduleID); err != nil {
		log.Error().Err(err).Msg("retention sweep failed")
	}
}
