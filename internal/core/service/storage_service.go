package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nvaziri/pgvault/internal/storage"
)

// StorageService owns the live storage client and rebuilds it when the
// stored credentials change, so the engine and handlers always see the
// current configuration.
type StorageService struct {
	mu     sync.RWMutex
	client *storage.Client

	creds *CredentialService
	log   zerolog.Logger
}

func NewStorageService(creds *CredentialService, log zerolog.Logger) *StorageService {
	return &StorageService{creds: creds, log: log}
}

// NewStorageServiceWithClient wires a prebuilt client, used by tests.
func NewStorageServiceWithClient(client *storage.Client, creds *CredentialService, log zerolog.Logger) *StorageService {
	return &StorageService{client: client, creds: creds, log: log}
}

// Reload resolves the active credential and swaps in a fresh client.
// With no credential configured the client becomes nil, which every
// caller treats as "storage not configured".
func (s *StorageService) Reload(ctx context.Context) error {
	cfg, err := s.creds.ResolveStorageConfig(ctx)
	if err != nil {
		return err
	}

	client := storage.New(cfg, s.log)

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	if client == nil {
		s.log.Warn().Msg("object storage is not configured, backups are disabled")
	}
	return nil
}

// Client returns the current client, nil when unconfigured.
func (s *StorageService) Client() *storage.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// TestConnection checks the current credentials against the bucket.
func (s *StorageService) TestConnection(ctx context.Context) error {
	client := s.Client()
	if client == nil {
		return NewServiceError(http.StatusServiceUnavailable, "object storage is not configured")
	}
	return client.TestConnection(ctx)
}
