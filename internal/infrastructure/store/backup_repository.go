package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
)

const backupColumns = `id, file_name, s3_key, s3_bucket, file_size, backup_type,
		schedule_id, status, error_message, created_by, created_at, completed_at`

type backupRepository struct {
	db *DB
}

func NewBackupRepository(db *DB) repository.BackupRepository {
	return &backupRepository{db: db}
}

func (r *backupRepository) Create(ctx context.Context, backup *domain.Backup) error {
	query := r.db.Rebind(`
		INSERT INTO backup (id, file_name, s3_key, s3_bucket, file_size, backup_type,
			schedule_id, status, error_message, created_by, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		backup.ID,
		backup.FileName,
		backup.S3Key,
		backup.S3Bucket,
		NullInt64(backup.FileSize),
		backup.Type,
		NullInt64(backup.ScheduleID),
		backup.Status,
		NullString(backup.ErrorMessage),
		backup.CreatedBy,
		backup.CreatedAt,
		NullTime(backup.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	return nil
}

func (r *backupRepository) FindByID(ctx context.Context, id string) (*domain.Backup, error) {
	query := r.db.Rebind(`
		SELECT ` + backupColumns + `
		FROM backup
		WHERE id = ?
	`)
	return r.scanBackup(r.db.QueryRowContext(ctx, query, id))
}

// Update only touches records still in progress. Completed and failed
// backups are immutable, so a second transition is a silent no-op.
func (r *backupRepository) Update(ctx context.Context, backup *domain.Backup) error {
	query := r.db.Rebind(`
		UPDATE backup
		SET file_name = ?, s3_key = ?, s3_bucket = ?, file_size = ?,
			status = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`)

	_, err := r.db.ExecContext(ctx, query,
		backup.FileName,
		backup.S3Key,
		backup.S3Bucket,
		NullInt64(backup.FileSize),
		backup.Status,
		NullString(backup.ErrorMessage),
		NullTime(backup.CompletedAt),
		backup.ID,
		domain.BackupStatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to update backup: %w", err)
	}
	return nil
}

func (r *backupRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM backup WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("backup not found: %s", id)
	}

	return nil
}

func (r *backupRepository) List(ctx context.Context, filter repository.BackupFilter) ([]*domain.Backup, error) {
	query := `
		SELECT ` + backupColumns + `
		FROM backup
		WHERE 1=1
	`
	args := []interface{}{}

	query, args = ApplyFilters(query, args, filter.Filters)
	query = ApplyOrdering(query, filter.Order, "created_at DESC")
	query, args = ApplyPagination(query, args, filter.Page, filter.PerPage)

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var backups []*domain.Backup
	for rows.Next() {
		backup, err := r.scanBackupRow(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, backup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backups: %w", err)
	}

	return backups, nil
}

func (r *backupRepository) Count(ctx context.Context, filter repository.BackupFilter) (int, error) {
	query := `SELECT COUNT(*) FROM backup WHERE 1=1`
	args := []interface{}{}

	query, args = ApplyFilters(query, args, filter.Filters)

	var count int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count backups: %w", err)
	}

	return count, nil
}

func (r *backupRepository) FindBySchedule(ctx context.Context, scheduleID int64) ([]*domain.Backup, error) {
	query := r.db.Rebind(`
		SELECT ` + backupColumns + `
		FROM backup
		WHERE schedule_id = ?
		ORDER BY created_at DESC
	`)
	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find backups by schedule: %w", err)
	}
	defer rows.Close()

	var backups []*domain.Backup
	for rows.Next() {
		backup, err := r.scanBackupRow(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, backup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backups: %w", err)
	}

	return backups, nil
}

func (r *backupRepository) scanBackup(row *sql.Row) (*domain.Backup, error) {
	var backup domain.Backup
	var fileSize, scheduleID sql.NullInt64
	var errorMessage sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&backup.ID,
		&backup.FileName,
		&backup.S3Key,
		&backup.S3Bucket,
		&fileSize,
		&backup.Type,
		&scheduleID,
		&backup.Status,
		&errorMessage,
		&backup.CreatedBy,
		&backup.CreatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("backup %w", repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan backup: %w", err)
	}

	if fileSize.Valid {
		backup.FileSize = &fileSize.Int64
	}
	if scheduleID.Valid {
		backup.ScheduleID = &scheduleID.Int64
	}
	if errorMessage.Valid {
		backup.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		backup.CompletedAt = &completedAt.Time
	}

	return &backup, nil
}

func (r *backupRepository) scanBackupRow(rows *sql.Rows) (*domain.Backup, error) {
	var backup domain.Backup
	var fileSize, scheduleID sql.NullInt64
	var errorMessage sql.NullString
	var completedAt sql.NullTime

	err := rows.Scan(
		&backup.ID,
		&backup.FileName,
		&backup.S3Key,
		&backup.S3Bucket,
		&fileSize,
		&backup.Type,
		&scheduleID,
		&backup.Status,
		&errorMessage,
		&backup.CreatedBy,
		&backup.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan backup: %w", err)
	}

	if fileSize.Valid {
		backup.FileSize = &fileSize.Int64
	}
	if scheduleID.Valid {
		backup.ScheduleID = &scheduleID.Int64
	}
	if errorMessage.Valid {
		backup.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		backup.CompletedAt = &completedAt.Time
	}

	return &backup, nil
}
