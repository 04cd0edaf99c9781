package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/nvaziri/pgvault/internal/core/domain"
)

func TestScheduleValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.scheduleRepo, env.backupRepo)

	tests := []struct {
		name     string
		schedule *domain.Schedule
		wantErr  string
	}{
		{
			name:     "valid daily",
			schedule: domain.NewSchedule("nightly", domain.FrequencyDaily, "03:00", 30),
		},
		{
			name: "valid weekly with day",
			schedule: func() *domain.Schedule {
				s := domain.NewSchedule("weekly", domain.FrequencyWeekly, "02:30", 90)
				s.DayOfWeek = ptr(3)
				return s
			}(),
		},
		{
			name: "valid monthly with day",
			schedule: func() *domain.Schedule {
				s := domain.NewSchedule("monthly", domain.FrequencyMonthly, "01:00", 365)
				s.DayOfMonth = ptr(15)
				return s
			}(),
		},
		{
			name:     "missing name",
			schedule: domain.NewSchedule("", domain.FrequencyDaily, "03:00", 30),
			wantErr:  "name is required",
		},
		{
			name:     "bad time format",
			schedule: domain.NewSchedule("nightly", domain.FrequencyDaily, "3am", 30),
			wantErr:  "time_of_day",
		},
		{
			name:     "hour out of range",
			schedule: domain.NewSchedule("nightly", domain.FrequencyDaily, "24:00", 30),
			wantErr:  "time_of_day",
		},
		{
			name: "day of week out of range",
			schedule: func() *domain.Schedule {
				s := domain.NewSchedule("weekly", domain.FrequencyWeekly, "02:30", 90)
				s.DayOfWeek = ptr(7)
				return s
			}(),
			wantErr: "day_of_week",
		},
		{
			name: "day of month out of range",
			schedule: func() *domain.Schedule {
				s := domain.NewSchedule("monthly", domain.FrequencyMonthly, "01:00", 365)
				s.DayOfMonth = ptr(31)
				return s
			}(),
			wantErr: "day_of_month",
		},
		{
			name: "daily rejects day fields",
			schedule: func() *domain.Schedule {
				s := domain.NewSchedule("nightly", domain.FrequencyDaily, "03:00", 30)
				s.DayOfWeek = ptr(3)
				return s
			}(),
			wantErr: "daily schedules",
		},
		{
			name: "weekly rejects day of month",
			schedule: func() *domain.Schedule {
				s := domain.NewSchedule("weekly", domain.FrequencyWeekly, "02:30", 90)
				s.DayOfWeek = ptr(3)
				s.DayOfMonth = ptr(15)
				return s
			}(),
			wantErr: "day_of_month does not apply",
		},
		{
			name: "monthly rejects day of week",
			schedule: func() *domain.Schedule {
				s := domain.NewSchedule("monthly", domain.FrequencyMonthly, "01:00", 365)
				s.DayOfMonth = ptr(15)
				s.DayOfWeek = ptr(1)
				return s
			}(),
			wantErr: "day_of_week does not apply",
		},
		{
			name:     "unknown frequency",
			schedule: domain.NewSchedule("odd", domain.ScheduleFrequency("hourly"), "03:00", 30),
			wantErr:  "frequency",
		},
		{
			name:     "negative retention",
			schedule: domain.NewSchedule("nightly", domain.FrequencyDaily, "03:00", -1),
			wantErr:  "retention_days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateSchedule(context.Background(), tt.schedule)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("CreateSchedule: %v", err)
				}
				if tt.schedule.ID == 0 {
					t.Error("persisted schedule should get an id")
				}
				return
			}

			var svcErr *ServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("error = %v, want a ServiceError", err)
			}
			if svcErr.Code != http.StatusBadRequest {
				t.Errorf("code = %d, want 400", svcErr.Code)
			}
			if !strings.Contains(svcErr.Message, tt.wantErr) {
				t.Errorf("message = %q, want substring %q", svcErr.Message, tt.wantErr)
			}
		})
	}
}

func TestUpdateSchedule(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.scheduleRepo, env.backupRepo)

	schedule := env.seedSchedule(t, "nightly", 30)
	original := schedule.UpdatedAt

	schedule.TimeOfDay = "04:15"
	schedule.RetentionDays = 60
	if err := svc.UpdateSchedule(context.Background(), schedule); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored, err := svc.GetSchedule(context.Background(), schedule.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.TimeOfDay != "04:15" || stored.RetentionDays != 60 {
		t.Errorf("stored = %q/%d, want 04:15/60", stored.TimeOfDay, stored.RetentionDays)
	}
	if !stored.UpdatedAt.After(original) {
		t.Error("updated_at should advance")
	}
}

func TestDeleteScheduleKeepsBackupHistory(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.scheduleRepo, env.backupRepo)

	schedule := env.seedSchedule(t, "nightly", 30)
	backup := env.seedBackup(t, domain.BackupStatusCompleted, 0, &schedule.ID)

	if err := svc.DeleteSchedule(context.Background(), schedule.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	stored, err := env.backupRepo.FindByID(context.Background(), backup.ID)
	if err != nil {
		t.Fatalf("backup should survive schedule deletion: %v", err)
	}
	if stored.ScheduleID != nil {
		t.Errorf("schedule_id = %v, want NULL after schedule deletion", *stored.ScheduleID)
	}
}

func TestListActiveSchedules(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.scheduleRepo, env.backupRepo)

	active := env.seedSchedule(t, "active", 30)
	inactive := env.seedSchedule(t, "inactive", 30)
	inactive.Active = false
	if err := env.scheduleRepo.Update(context.Background(), inactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	schedules, err := svc.ListActiveSchedules(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ID != active.ID {
		t.Errorf("got %d schedules, want only %q", len(schedules), active.Name)
	}
}
