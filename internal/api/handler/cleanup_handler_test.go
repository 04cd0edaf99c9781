package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/nvaziri/pgvault/internal/api/dto"
	"github.com/nvaziri/pgvault/internal/core/domain"
)

func TestCleanupEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	schedule := domain.NewSchedule("nightly", domain.FrequencyDaily, "03:00", 7)
	if err := env.scheduleRepo.Create(context.Background(), schedule); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	seed := func(id string, age time.Duration) {
		backup := domain.NewBackup(domain.BackupTypeScheduled, "scheduler")
		backup.ID = id
		backup.FileName = id + ".sql.gz"
		backup.ScheduleID = &schedule.ID
		backup.CreatedAt = time.Now().UTC().Add(-age)
		backup.Status = domain.BackupStatusCompleted
		backup.S3Key = "backups/" + backup.FileName
		backup.S3Bucket = "test-bucket"
		completed := backup.CreatedAt.Add(time.Minute)
		backup.CompletedAt = &completed
		env.s3.mu.Lock()
		env.s3.objects[backup.S3Key] = []byte("archive")
		env.s3.mu.Unlock()
		if err := env.backupRepo.Create(context.Background(), backup); err != nil {
			t.Fatalf("seed backup %s: %v", id, err)
		}
	}
	seed("expired-1", 30*24*time.Hour)
	seed("expired-2", 10*24*time.Hour)
	seed("fresh-1", 2*24*time.Hour)

	w := env.makeRequest(t, http.MethodPost, "/cleanup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d\nBody: %s", w.Code, w.Body.String())
	}

	var resp dto.CleanupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", resp.Deleted)
	}
	if env.s3.has("backups/expired-1.sql.gz") || env.s3.has("backups/expired-2.sql.gz") {
		t.Error("expired archives should be removed")
	}
	if !env.s3.has("backups/fresh-1.sql.gz") {
		t.Error("fresh archive should survive")
	}
}

func TestCleanupBySchedulePayload(t *testing.T) {
	env := setupTestEnv(t)

	schedule := domain.NewSchedule("nightly", domain.FrequencyDaily, "03:00", 7)
	if err := env.scheduleRepo.Create(context.Background(), schedule); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	w := env.makeRequest(t, http.MethodPost, "/cleanup", dto.CleanupRequest{ScheduleID: &schedule.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d\nBody: %s", w.Code, w.Body.String())
	}

	var resp dto.CleanupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Deleted != 0 {
		t.Errorf("deleted = %d, want 0 with nothing seeded", resp.Deleted)
	}
}
