package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
)

const backupKeyPrefix = "backups/"

// BackupConfig carries the engine settings resolved at startup.
type BackupConfig struct {
	DatabaseURL string
	TmpDir      string
	DumpTimeout time.Duration
}

type BackupService struct {
	backupRepo repository.BackupRepository
	storage    *StorageService
	dumper     Dumper
	cfg        BackupConfig
	log        zerolog.Logger
}

func NewBackupService(
	backupRepo repository.BackupRepository,
	storage *StorageService,
	dumper Dumper,
	cfg BackupConfig,
	log zerolog.Logger,
) *BackupService {
	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}
	if cfg.DumpTimeout <= 0 {
		cfg.DumpTimeout = 30 * time.Minute
	}
	return &BackupService{
		backupRepo: backupRepo,
		storage:    storage,
		dumper:     dumper,
		cfg:        cfg,
		log:        log,
	}
}

type CreateBackupInput struct {
	Type       domain.BackupType
	ScheduleID *int64
	CreatedBy  string
}

// CreateBackup runs the full pipeline: record the run, dump the
// database through gzip to a temp file, upload the archive, finalize
// the record. The record always ends in a terminal status; a returned
// error mirrors a failed status.
func (s *BackupService) CreateBackup(ctx context.Context, input CreateBackupInput) (*domain.Backup, error) {
	client := s.storage.Client()
	if client == nil {
		return nil, NewServiceError(http.StatusServiceUnavailable, "object storage is not configured")
	}

	backup := domain.NewBackup(input.Type, input.CreatedBy)
	backup.ScheduleID = input.ScheduleID
	// The record ID in the name keeps runs started in the same second
	// from sharing an object key.
	backup.FileName = fmt.Sprintf("backup-%s-%s.sql.gz", backup.CreatedAt.Format("2006-01-02-150405"), backup.ID)

	if err := s.backupRepo.Create(ctx, backup); err != nil {
		return nil, fmt.Errorf("failed to record backup: %w", err)
	}

	// Record ID in the temp path keeps concurrent runs from colliding.
	tmpPath := filepath.Join(s.cfg.TmpDir, backup.ID+"-"+backup.FileName)
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", tmpPath).Msg("failed to remove temp dump")
		}
	}()

	dumpCtx, cancel := context.WithTimeout(ctx, s.cfg.DumpTimeout)
	defer cancel()

	warnings, err := s.dumper.Dump(dumpCtx, s.cfg.DatabaseURL, tmpPath)
	for _, warning := range warnings {
		s.log.Warn().Str("backup_id", backup.ID).Msg(warning)
	}
	if err != nil {
		return s.fail(ctx, backup, err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return s.fail(ctx, backup, fmt.Errorf("failed to stat dump: %w", err))
	}

	key := backupKeyPrefix + backup.FileName
	metadata := map[string]string{
		"backup-id":   backup.ID,
		"backup-type": string(backup.Type),
	}
	if err := client.UploadFile(ctx, tmpPath, key, "application/gzip", metadata); err != nil {
		return s.fail(ctx, backup, err)
	}

	backup.Complete(key, client.Bucket(), info.Size())
	if err := s.backupRepo.Update(ctx, backup); err != nil {
		return backup, fmt.Errorf("failed to finalize backup: %w", err)
	}

	s.log.Info().
		Str("backup_id", backup.ID).
		Str("key", key).
		Int64("size", info.Size()).
		Msg("backup completed")

	return backup, nil
}

func (s *BackupService) fail(ctx context.Context, backup *domain.Backup, cause error) (*domain.Backup, error) {
	s.log.Error().Err(cause).Str("backup_id", backup.ID).Msg("backup failed")

	backup.Fail(cause.Error())
	if err := s.backupRepo.Update(ctx, backup); err != nil {
		s.log.Error().Err(err).Str("backup_id", backup.ID).Msg("failed to record backup failure")
	}
	return backup, cause
}

// DownloadResult is a streamed backup archive. The caller closes Stream.
type DownloadResult struct {
	Stream   io.ReadCloser
	FileName string
	Size     int64
}

// DownloadBackup opens the archive for a completed backup. An unknown
// id returns nil, nil; absence is normal control flow here.
func (s *BackupService) DownloadBackup(ctx context.Context, id string) (*DownloadResult, error) {
	backup, err := s.backupRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if backup.Status != domain.BackupStatusCompleted {
		return nil, NewServiceError(http.StatusConflict, "backup is not completed")
	}

	client := s.storage.Client()
	if client == nil {
		return nil, NewServiceError(http.StatusServiceUnavailable, "object storage is not configured")
	}

	stream, err := client.GetFileStream(ctx, backup.S3Key)
	if err != nil {
		return nil, err
	}

	var size int64
	if backup.FileSize != nil {
		size = *backup.FileSize
	}
	return &DownloadResult{Stream: stream, FileName: backup.FileName, Size: size}, nil
}

// DeleteBackup removes the remote object first, then the record. It
// reports false for an unknown id.
func (s *BackupService) DeleteBackup(ctx context.Context, id string) (bool, error) {
	backup, err := s.backupRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if backup.S3Key != "" {
		client := s.storage.Client()
		if client == nil {
			return false, NewServiceError(http.StatusServiceUnavailable, "object storage is not configured")
		}
		if err := client.DeleteFile(ctx, backup.S3Key); err != nil {
			return false, err
		}
	}

	if err := s.backupRepo.Delete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// GetBackup retrieves a backup by ID
func (s *BackupService) GetBackup(ctx context.Context, id string) (*domain.Backup, error) {
	return s.backupRepo.FindByID(ctx, id)
}

// ListBackups lists backups with filtering
func (s *BackupService) ListBackups(ctx context.Context, filter repository.BackupFilter) ([]*domain.Backup, error) {
	return s.backupRepo.List(ctx, filter)
}

// CountBackups counts backups with filtering
func (s *BackupService) CountBackups(ctx context.Context, filter repository.BackupFilter) (int, error) {
	return s.backupRepo.Count(ctx, filter)
}
