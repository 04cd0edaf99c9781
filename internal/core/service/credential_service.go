package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/repository"
	"github.com/nvaziri/pgvault/internal/storage"
	"github.com/nvaziri/pgvault/internal/vault"
)

type CredentialService struct {
	credRepo repository.CredentialRepository
	vault    *vault.Vault
}

func NewCredentialService(credRepo repository.CredentialRepository, v *vault.Vault) *CredentialService {
	return &CredentialService{credRepo: credRepo, vault: v}
}

type SetCredentialsInput struct {
	AccessKey   string
	SecretKey   string
	Region      string
	Bucket      string
	Endpoint    string
	Description *string
}

// SetCredentials stores a new active storage credential. Both key
// values are encrypted when the vault is enabled; otherwise they are
// stored with an explicit plain tag so later reads never have to guess.
func (s *CredentialService) SetCredentials(ctx context.Context, input SetCredentialsInput) (*domain.StorageCredential, error) {
	if input.AccessKey == "" || input.SecretKey == "" || input.Bucket == "" {
		return nil, NewServiceError(http.StatusBadRequest, "access_key, secret_key and bucket are required")
	}

	accessKey := input.AccessKey
	secretKey := input.SecretKey
	scheme := domain.KeySchemePlain
	if s.vault.Enabled() {
		var err error
		if accessKey, err = s.vault.Encrypt(input.AccessKey); err != nil {
			return nil, fmt.Errorf("failed to encrypt access key: %w", err)
		}
		if secretKey, err = s.vault.Encrypt(input.SecretKey); err != nil {
			return nil, fmt.Errorf("failed to encrypt secret key: %w", err)
		}
		scheme = domain.KeySchemeAESCBC
	}

	credential := domain.NewStorageCredential(accessKey, secretKey, scheme, input.Region, input.Bucket, input.Endpoint)
	credential.Description = input.Description

	if err := s.credRepo.Upsert(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	return credential, nil
}

// GetCredentials returns the active credential with the access key
// decrypted for display, or nil when none is configured. The secret key
// stays in its stored form; callers mask it before responding.
func (s *CredentialService) GetCredentials(ctx context.Context) (*domain.StorageCredential, error) {
	credential, err := s.credRepo.FindActive(ctx)
	if err != nil || credential == nil {
		return credential, err
	}

	if credential.KeyScheme == domain.KeySchemeAESCBC {
		accessKey, err := s.vault.Decrypt(credential.AccessKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access key: %w", err)
		}
		credential.AccessKey = accessKey
	}
	return credential, nil
}

// ResolveStorageConfig turns the active credential into a usable
// storage config, decrypting both key values according to their scheme.
// A zero config means storage is simply not configured.
func (s *CredentialService) ResolveStorageConfig(ctx context.Context) (storage.Config, error) {
	credential, err := s.credRepo.FindActive(ctx)
	if err != nil {
		return storage.Config{}, err
	}
	if credential == nil {
		return storage.Config{}, nil
	}

	accessKey := credential.AccessKey
	secretKey := credential.SecretKey
	if credential.KeyScheme == domain.KeySchemeAESCBC {
		if accessKey, err = s.vault.Decrypt(credential.AccessKey); err != nil {
			return storage.Config{}, fmt.Errorf("failed to decrypt access key: %w", err)
		}
		if secretKey, err = s.vault.Decrypt(credential.SecretKey); err != nil {
			return storage.Config{}, fmt.Errorf("failed to decrypt secret key: %w", err)
		}
	}

	return storage.Config{
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    credential.Region,
		Bucket:    credential.Bucket,
		Endpoint:  credential.Endpoint,
	}, nil
}
