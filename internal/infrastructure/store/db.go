package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_code (
	code TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	scopes TEXT NOT NULL, -- JSON array
	expires_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (username) REFERENCES users(username) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS schedule (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	frequency TEXT NOT NULL,
	time_of_day TEXT NOT NULL,
	day_of_week INTEGER,
	day_of_month INTEGER,
	retention_days INTEGER NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	last_run_at DATETIME,
	next_run_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS backup (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	s3_key TEXT NOT NULL DEFAULT '',
	s3_bucket TEXT NOT NULL DEFAULT '',
	file_size INTEGER,
	backup_type TEXT NOT NULL,
	schedule_id INTEGER,
	status TEXT NOT NULL,
	error_message TEXT,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	completed_at DATETIME,
	FOREIGN KEY (schedule_id) REFERENCES schedule(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS storage_credential (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	access_key TEXT NOT NULL,
	secret_key TEXT NOT NULL,
	key_scheme TEXT NOT NULL,
	region TEXT NOT NULL,
	bucket TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	description TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_backup_schedule_id ON backup(schedule_id);
CREATE INDEX IF NOT EXISTS idx_backup_created_at ON backup(created_at);
CREATE INDEX IF NOT EXISTS idx_backup_status ON backup(status);
CREATE INDEX IF NOT EXISTS idx_auth_code_expires_at ON auth_code(expires_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_code (
	code TEXT PRIMARY KEY,
	username TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
	scopes TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	frequency TEXT NOT NULL,
	time_of_day TEXT NOT NULL,
	day_of_week INTEGER,
	day_of_month INTEGER,
	retention_days INTEGER NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	last_run_at TIMESTAMPTZ,
	next_run_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS backup (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	s3_key TEXT NOT NULL DEFAULT '',
	s3_bucket TEXT NOT NULL DEFAULT '',
	file_size BIGINT,
	backup_type TEXT NOT NULL,
	schedule_id BIGINT REFERENCES schedule(id) ON DELETE SET NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS storage_credential (
	id BIGSERIAL PRIMARY KEY,
	access_key TEXT NOT NULL,
	secret_key TEXT NOT NULL,
	key_scheme TEXT NOT NULL,
	region TEXT NOT NULL,
	bucket TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	description TEXT,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_backup_schedule_id ON backup(schedule_id);
CREATE INDEX IF NOT EXISTS idx_backup_created_at ON backup(created_at);
CREATE INDEX IF NOT EXISTS idx_backup_status ON backup(status);
CREATE INDEX IF NOT EXISTS idx_auth_code_expires_at ON auth_code(expires_at);
`

type DB struct {
	*sqlx.DB
}

// Open connects to the registry database. Supported drivers are
// "postgres" (production) and "sqlite" (tests and single-node setups).
// Queries in this package use ? placeholders and are rebound through
// sqlx for the active driver.
func Open(driver, dsn string) (*DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := postgresSchema
	if driver == "sqlite" {
		schema = sqliteSchema

		// A single connection keeps :memory: databases coherent and
		// avoids SQLITE_BUSY under writer contention.
		db.SetMaxOpenConns(1)

		// WAL mode for better concurrency (allows concurrent reads/writes)
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}

		// Busy timeout to handle concurrent access from scheduler and API
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}

		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// NullString helper for optional string fields
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// NullInt64 helper for optional int64 fields
func NullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// NullInt helper for optional int fields
func NullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// NullTime helper for optional time fields
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
