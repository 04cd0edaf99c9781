package repository

import (
	"context"

	"github.com/nvaziri/pgvault/internal/core/domain"
)

// AuthCodeRepository persists short-lived login codes that get
// exchanged for a JWT. Codes are single use: the exchange deletes them.
type AuthCodeRepository interface {
	Create(ctx context.Context, authCode *domain.AuthCode) error
	FindByCode(ctx context.Context, code string) (*domain.AuthCode, error)
	Delete(ctx context.Context, code string) error
	DeleteExpired(ctx context.Context) error
}
