package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/infrastructure/store"
	"github.com/nvaziri/pgvault/internal/storage"
	"github.com/nvaziri/pgvault/internal/vault"
)

func credentialEnv(t *testing.T, secret string) *CredentialService {
	t.Helper()
	db, err := store.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCredentialService(store.NewCredentialRepository(db), vault.New(secret))
}

func TestSetCredentialsEncrypted(t *testing.T) {
	svc := credentialEnv(t, "test-encryption-secret")

	input := SetCredentialsInput{
		AccessKey: "AKIAEXAMPLE",
		SecretKey: "super-secret-key",
		Region:    "us-east-1",
		Bucket:    "backups",
		Endpoint:  "https://minio.internal:9000",
	}
	credential, err := svc.SetCredentials(context.Background(), input)
	if err != nil {
		t.Fatalf("set credentials: %v", err)
	}

	if credential.KeyScheme != domain.KeySchemeAESCBC {
		t.Errorf("key scheme = %q, want aes-cbc", credential.KeyScheme)
	}
	if credential.SecretKey == input.SecretKey {
		t.Error("secret key should not be stored in the clear")
	}
	if credential.AccessKey == input.AccessKey {
		t.Error("access key should not be stored in the clear")
	}
	if !strings.Contains(credential.SecretKey, ":") || !strings.Contains(credential.AccessKey, ":") {
		t.Errorf("stored keys (%q, %q) should carry the iv:ciphertext format", credential.AccessKey, credential.SecretKey)
	}

	// the resolved config carries the decrypted values
	cfg, err := svc.ResolveStorageConfig(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.SecretKey != input.SecretKey {
		t.Errorf("resolved secret = %q, want the original", cfg.SecretKey)
	}
	if cfg.AccessKey != input.AccessKey {
		t.Errorf("resolved access key = %q, want the original", cfg.AccessKey)
	}
	if cfg.Bucket != "backups" || cfg.Endpoint != "https://minio.internal:9000" {
		t.Errorf("resolved config = %+v, want stored values", cfg)
	}

	// the display path decrypts the access key but not the secret
	shown, err := svc.GetCredentials(context.Background())
	if err != nil {
		t.Fatalf("get credentials: %v", err)
	}
	if shown.AccessKey != input.AccessKey {
		t.Errorf("displayed access key = %q, want the plaintext", shown.AccessKey)
	}
	if shown.SecretKey == input.SecretKey {
		t.Error("displayed secret key should stay in its stored form")
	}
}

func TestSetCredentialsPlainWithoutVault(t *testing.T) {
	svc := credentialEnv(t, "")

	credential, err := svc.SetCredentials(context.Background(), SetCredentialsInput{
		AccessKey: "AKIAEXAMPLE",
		SecretKey: "super-secret-key",
		Bucket:    "backups",
	})
	if err != nil {
		t.Fatalf("set credentials: %v", err)
	}

	if credential.KeyScheme != domain.KeySchemePlain {
		t.Errorf("key scheme = %q, want plain", credential.KeyScheme)
	}
	if credential.SecretKey != "super-secret-key" {
		t.Errorf("secret = %q, want stored verbatim with the plain tag", credential.SecretKey)
	}

	cfg, err := svc.ResolveStorageConfig(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.SecretKey != "super-secret-key" {
		t.Errorf("resolved secret = %q", cfg.SecretKey)
	}
}

func TestSetCredentialsValidation(t *testing.T) {
	svc := credentialEnv(t, "")

	tests := []struct {
		name  string
		input SetCredentialsInput
	}{
		{"missing access key", SetCredentialsInput{SecretKey: "s", Bucket: "b"}},
		{"missing secret key", SetCredentialsInput{AccessKey: "a", Bucket: "b"}},
		{"missing bucket", SetCredentialsInput{AccessKey: "a", SecretKey: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetCredentials(context.Background(), tt.input)
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("error = %v, want a ServiceError", err)
			}
			if svcErr.Code != http.StatusBadRequest {
				t.Errorf("code = %d, want 400", svcErr.Code)
			}
		})
	}
}

func TestSetCredentialsReplacesActive(t *testing.T) {
	svc := credentialEnv(t, "")

	first, err := svc.SetCredentials(context.Background(), SetCredentialsInput{
		AccessKey: "first", SecretKey: "s1", Bucket: "old-bucket",
	})
	if err != nil {
		t.Fatalf("first set: %v", err)
	}
	second, err := svc.SetCredentials(context.Background(), SetCredentialsInput{
		AccessKey: "second", SecretKey: "s2", Bucket: "new-bucket",
	})
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if first.ID == second.ID {
		t.Error("replacement should insert a new row")
	}

	active, err := svc.GetCredentials(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if active == nil || active.AccessKey != "second" {
		t.Fatalf("active = %+v, want the second credential", active)
	}
}

func TestResolveStorageConfigUnconfigured(t *testing.T) {
	svc := credentialEnv(t, "")

	cfg, err := svc.ResolveStorageConfig(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg != (storage.Config{}) {
		t.Errorf("config = %+v, want zero value", cfg)
	}

	credential, err := svc.GetCredentials(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if credential != nil {
		t.Errorf("credential = %+v, want nil", credential)
	}
}

func TestResolveStorageConfigMissingSecret(t *testing.T) {
	// store under a vault, then resolve without one
	withVault := credentialEnv(t, "test-encryption-secret")
	if _, err := withVault.SetCredentials(context.Background(), SetCredentialsInput{
		AccessKey: "a", SecretKey: "s", Bucket: "b",
	}); err != nil {
		t.Fatalf("set: %v", err)
	}

	withoutVault := NewCredentialService(withVault.credRepo, vault.New(""))
	_, err := withoutVault.ResolveStorageConfig(context.Background())
	if !errors.Is(err, vault.ErrSecretMissing) {
		t.Errorf("error = %v, want ErrSecretMissing", err)
	}
}
