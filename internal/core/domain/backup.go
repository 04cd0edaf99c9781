package domain

import (
	"time"

	"github.com/google/uuid"
)

type BackupType string

const (
	BackupTypeManual    BackupType = "manual"
	BackupTypeScheduled BackupType = "scheduled"
)

type BackupStatus string

const (
	BackupStatusInProgress BackupStatus = "in_progress"
	BackupStatusCompleted  BackupStatus = "completed"
	BackupStatusFailed     BackupStatus = "failed"
)

type Backup struct {
	ID           string       `db:"id"`
	FileName     string       `db:"file_name"`
	S3Key        string       `db:"s3_key"`
	S3Bucket     string       `db:"s3_bucket"`
	FileSize     *int64       `db:"file_size"` // In bytes, set on completion
	Type         BackupType   `db:"backup_type"`
	ScheduleID   *int64       `db:"schedule_id"` // For scheduled backups
	Status       BackupStatus `db:"status"`
	ErrorMessage *string      `db:"error_message"`
	CreatedBy    string       `db:"created_by"`
	CreatedAt    time.Time    `db:"created_at"`
	CompletedAt  *time.Time   `db:"completed_at"`
}

func NewBackup(backupType BackupType, createdBy string) *Backup {
	return &Backup{
		ID:        uuid.New().String(),
		Type:      backupType,
		Status:    BackupStatusInProgress,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
}

func (b *Backup) Complete(key, bucket string, size int64) {
	now := time.Now().UTC()
	b.S3Key = key
	b.S3Bucket = bucket
	b.FileSize = &size
	b.Status = BackupStatusCompleted
	b.CompletedAt = &now
}

func (b *Backup) Fail(message string) {
	now := time.Now().UTC()
	b.Status = BackupStatusFailed
	b.ErrorMessage = &message
	b.CompletedAt = &now
}

// IsTerminal reports whether the backup reached a final state.
// Terminal records are never updated again.
func (b *Backup) IsTerminal() bool {
	return b.Status == BackupStatusCompleted || b.Status == BackupStatusFailed
}
