package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
)

type credentialRepository struct {
	db *DB
}

func NewCredentialRepository(db *DB) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

// Upsert deactivates any existing credential before inserting the new
// one, so FindActive always resolves to a single row.
func (r *credentialRepository) Upsert(ctx context.Context, credential *domain.StorageCredential) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deactivate := r.db.Rebind(`UPDATE storage_credential SET active = ?, updated_at = ? WHERE active = ?`)
	if _, err := tx.ExecContext(ctx, deactivate, false, time.Now().UTC(), true); err != nil {
		return fmt.Errorf("failed to deactivate previous credential: %w", err)
	}

	insert := r.db.Rebind(`
		INSERT INTO storage_credential (access_key, secret_key, key_scheme, region, bucket,
			endpoint, description, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err = tx.QueryRowContext(ctx, insert,
		credential.AccessKey,
		credential.SecretKey,
		credential.KeyScheme,
		credential.Region,
		credential.Bucket,
		credential.Endpoint,
		NullString(credential.Description),
		credential.Active,
		credential.CreatedAt,
		credential.UpdatedAt,
	).Scan(&credential.ID)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential: %w", err)
	}
	return nil
}

func (r *credentialRepository) FindActive(ctx context.Context) (*domain.StorageCredential, error) {
	query := r.db.Rebind(`
		SELECT id, access_key, secret_key, key_scheme, region, bucket, endpoint,
			description, active, created_at, updated_at
		FROM storage_credential
		WHERE active = ?
		ORDER BY id DESC
		LIMIT 1
	`)

	var credential domain.StorageCredential
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, true).Scan(
		&credential.ID,
		&credential.AccessKey,
		&credential.SecretKey,
		&credential.KeyScheme,
		&credential.Region,
		&credential.Bucket,
		&credential.Endpoint,
		&description,
		&credential.Active,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // no credential configured is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active credential: %w", err)
	}

	if description.Valid {
		credential.Description = &description.String
	}

	return &credential, nil
}
