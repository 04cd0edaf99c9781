package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
)

const scheduleColumns = `id, name, frequency, time_of_day, day_of_week, day_of_month,
		retention_days, active, last_run_at, next_run_at, created_at, updated_at`

type scheduleRepository struct {
	db *DB
}

func NewScheduleRepository(db *DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *domain.Schedule) error {
	// RETURNING works on both postgres and modern sqlite, unlike
	// LastInsertId which lib/pq does not support.
	query := r.db.Rebind(`
		INSERT INTO schedule (name, frequency, time_of_day, day_of_week, day_of_month,
			retention_days, active, last_run_at, next_run_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowContext(ctx, query,
		schedule.Name,
		schedule.Frequency,
		schedule.TimeOfDay,
		NullInt(schedule.DayOfWeek),
		NullInt(schedule.DayOfMonth),
		schedule.RetentionDays,
		schedule.Active,
		NullTime(schedule.LastRunAt),
		NullTime(schedule.NextRunAt),
		schedule.CreatedAt,
		schedule.UpdatedAt,
	).Scan(&schedule.ID)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	return nil
}

func (r *scheduleRepository) FindByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	query := r.db.Rebind(`
		SELECT ` + scheduleColumns + `
		FROM schedule
		WHERE id = ?
	`)
	return r.scanSchedule(r.db.QueryRowContext(ctx, query, id))
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *domain.Schedule) error {
	query := r.db.Rebind(`
		UPDATE schedule
		SET name = ?, frequency = ?, time_of_day = ?, day_of_week = ?, day_of_month = ?,
			retention_days = ?, active = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		schedule.Name,
		schedule.Frequency,
		schedule.TimeOfDay,
		NullInt(schedule.DayOfWeek),
		NullInt(schedule.DayOfMonth),
		schedule.RetentionDays,
		schedule.Active,
		NullTime(schedule.NextRunAt),
		schedule.UpdatedAt,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("schedule not found: %d", schedule.ID)
	}

	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM schedule WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("schedule not found: %d", id)
	}

	return nil
}

func (r *scheduleRepository) List(ctx context.Context, filter repository.ScheduleFilter) ([]*domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedule
		WHERE 1=1
	`
	args := []interface{}{}

	query, args = ApplyFilters(query, args, filter.Filters)
	query = ApplyOrdering(query, filter.Order, "id ASC")
	query, args = ApplyPagination(query, args, filter.Page, filter.PerPage)

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.Schedule
	for rows.Next() {
		schedule, err := r.scanScheduleRow(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

func (r *scheduleRepository) Count(ctx context.Context, filter repository.ScheduleFilter) (int, error) {
	query := `SELECT COUNT(*) FROM schedule WHERE 1=1`
	args := []interface{}{}

	query, args = ApplyFilters(query, args, filter.Filters)

	var count int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count schedules: %w", err)
	}

	return count, nil
}

func (r *scheduleRepository) FindAllActive(ctx context.Context) ([]*domain.Schedule, error) {
	query := r.db.Rebind(`
		SELECT ` + scheduleColumns + `
		FROM schedule
		WHERE active = ?
		ORDER BY id ASC
	`)
	rows, err := r.db.QueryContext(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("failed to find active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.Schedule
	for rows.Next() {
		schedule, err := r.scanScheduleRow(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

func (r *scheduleRepository) UpdateLastRun(ctx context.Context, id int64, lastRun time.Time, nextRun *time.Time) error {
	query := r.db.Rebind(`
		UPDATE schedule
		SET last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?
	`)
	_, err := r.db.ExecContext(ctx, query, lastRun, NullTime(nextRun), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last run: %w", err)
	}
	return nil
}

func (r *scheduleRepository) UpdateNextRun(ctx context.Context, id int64, nextRun *time.Time) error {
	query := r.db.Rebind(`
		UPDATE schedule
		SET next_run_at = ?, updated_at = ?
		WHERE id = ?
	`)
	_, err := r.db.ExecContext(ctx, query, NullTime(nextRun), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update next run: %w", err)
	}
	return nil
}

func (r *scheduleRepository) scanSchedule(row *sql.Row) (*domain.Schedule, error) {
	var schedule domain.Schedule
	var dayOfWeek, dayOfMonth sql.NullInt64
	var lastRunAt, nextRunAt sql.NullTime

	err := row.Scan(
		&schedule.ID,
		&schedule.Name,
		&schedule.Frequency,
		&schedule.TimeOfDay,
		&dayOfWeek,
		&dayOfMonth,
		&schedule.RetentionDays,
		&schedule.Active,
		&lastRunAt,
		&nextRunAt,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schedule %w", repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	applyScheduleNullables(&schedule, dayOfWeek, dayOfMonth, lastRunAt, nextRunAt)
	return &schedule, nil
}

func (r *scheduleRepository) scanScheduleRow(rows *sql.Rows) (*domain.Schedule, error) {
	var schedule domain.Schedule
	var dayOfWeek, dayOfMonth sql.NullInt64
	var lastRunAt, nextRunAt sql.NullTime

	err := rows.Scan(
		&schedule.ID,
		&schedule.Name,
		&schedule.Frequency,
		&schedule.TimeOfDay,
		&dayOfWeek,
		&dayOfMonth,
		&schedule.RetentionDays,
		&schedule.Active,
		&lastRunAt,
		&nextRunAt,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	applyScheduleNullables(&schedule, dayOfWeek, dayOfMonth, lastRunAt, nextRunAt)
	return &schedule, nil
}

func applyScheduleNullables(schedule *domain.Schedule, dayOfWeek, dayOfMonth sql.NullInt64, lastRunAt, nextRunAt sql.NullTime) {
	if dayOfWeek.Valid {
		dow := int(dayOfWeek.Int64)
		schedule.DayOfWeek = &dow
	}
	if dayOfMonth.Valid {
		dom := int(dayOfMonth.Int64)
		schedule.DayOfMonth = &dom
	}
	if lastRunAt.Valid {
		t := lastRunAt.Time
		schedule.LastRunAt = &t
	}
	if nextRunAt.Valid {
		t := nextRunAt.Time
		schedule.NextRunAt = &t
	}
}
