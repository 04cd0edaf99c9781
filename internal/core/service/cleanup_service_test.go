package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nvaziri/pgvault/internal/core/domain"
)

func TestCleanupOldBackups(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCleanupService(env.backupRepo, env.scheduleRepo, env.storageSvc, zerolog.Nop())

	schedule := env.seedSchedule(t, "nightly", 30)

	old := env.seedBackup(t, domain.BackupStatusCompleted, 45*24*time.Hour, &schedule.ID)
	fresh := env.seedBackup(t, domain.BackupStatusCompleted, 5*24*time.Hour, &schedule.ID)
	oldFailed := env.seedBackup(t, domain.BackupStatusFailed, 45*24*time.Hour, &schedule.ID)
	oldRunning := env.seedBackup(t, domain.BackupStatusInProgress, 45*24*time.Hour, &schedule.ID)

	deleted, err := svc.CleanupOldBackups(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := env.backupRepo.FindByID(context.Background(), old.ID); err == nil {
		t.Error("expired backup should be removed")
	}
	if env.s3.has(old.S3Key) {
		t.Error("expired archive should be removed from storage")
	}

	for _, survivor := range []*domain.Backup{fresh, oldFailed, oldRunning} {
		if _, err := env.backupRepo.FindByID(context.Background(), survivor.ID); err != nil {
			t.Errorf("backup %s (%s) should survive: %v", survivor.ID, survivor.Status, err)
		}
	}
	if !env.s3.has(fresh.S3Key) {
		t.Error("fresh archive should remain in storage")
	}
}

func TestCleanupSkipsZeroRetention(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCleanupService(env.backupRepo, env.scheduleRepo, env.storageSvc, zerolog.Nop())

	schedule := env.seedSchedule(t, "keep-forever", 0)
	old := env.seedBackup(t, domain.BackupStatusCompleted, 400*24*time.Hour, &schedule.ID)

	deleted, err := svc.CleanupOldBackups(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
	if _, err := env.backupRepo.FindByID(context.Background(), old.ID); err != nil {
		t.Errorf("backup should survive with retention disabled: %v", err)
	}
}

func TestCleanupBySchedule(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCleanupService(env.backupRepo, env.scheduleRepo, env.storageSvc, zerolog.Nop())

	nightly := env.seedSchedule(t, "nightly", 7)
	weekly := env.seedSchedule(t, "weekly", 7)

	expired := env.seedBackup(t, domain.BackupStatusCompleted, 10*24*time.Hour, &nightly.ID)
	otherSchedule := env.seedBackup(t, domain.BackupStatusCompleted, 10*24*time.Hour, &weekly.ID)

	deleted, err := svc.CleanupBySchedule(context.Background(), nightly.ID)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := env.backupRepo.FindByID(context.Background(), expired.ID); err == nil {
		t.Error("expired backup should be removed")
	}
	if _, err := env.backupRepo.FindByID(context.Background(), otherSchedule.ID); err != nil {
		t.Errorf("other schedule's backup should survive: %v", err)
	}
}

func TestCleanupRemoteFailureIsolated(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCleanupService(env.backupRepo, env.scheduleRepo, env.storageSvc, zerolog.Nop())

	schedule := env.seedSchedule(t, "nightly", 7)
	stuck := env.seedBackup(t, domain.BackupStatusCompleted, 10*24*time.Hour, &schedule.ID)

	env.s3.delErr = errors.New("access denied")

	deleted, err := svc.CleanupOldBackups(context.Background())
	if err != nil {
		t.Fatalf("cleanup should not fail on a stuck object: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}

	// Record stays so the next sweep can retry.
	if _, err := env.backupRepo.FindByID(context.Background(), stuck.ID); err != nil {
		t.Errorf("record should survive a remote delete failure: %v", err)
	}
}
