package repository

import (
	"context"

	"github.com/nvaziri/pgvault/internal/core/domain"
)

type CredentialRepository interface {
	// Upsert replaces the active storage credential. There is at most
	// one active credential at a time.
	Upsert(ctx context.Context, credential *domain.StorageCredential) error

	// FindActive returns the active credential, or nil when none is
	// configured.
	FindActive(ctx context.Context) (*domain.StorageCredential, error)
}
