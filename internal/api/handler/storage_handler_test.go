package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nvaziri/pgvault/internal/api/dto"
	"github.com/nvaziri/pgvault/internal/core/service"
)

func TestSetCredentialsMasksSecret(t *testing.T) {
	env := setupTestEnv(t)

	req := dto.SetCredentialsRequest{
		AccessKey: "AKIAEXAMPLE",
		SecretKey: "super-secret",
		Region:    "eu-central-1",
		Bucket:    "backups",
		Endpoint:  "https://minio.internal:9000",
	}
	w := env.makeRequest(t, http.MethodPut, "/storage/credentials", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d\nBody: %s", w.Code, w.Body.String())
	}

	var resp dto.CredentialResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.SecretKey == "super-secret" {
		t.Error("secret key must never be echoed back")
	}
	if !resp.Encrypted {
		t.Error("vault is configured, the credential should be encrypted")
	}

	// the masked view survives a fresh read
	w = env.makeRequest(t, http.MethodGet, "/storage/credentials", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.SecretKey == "super-secret" {
		t.Error("stored secret must stay masked")
	}
	if resp.Bucket != "backups" {
		t.Errorf("bucket = %q, want backups", resp.Bucket)
	}
}

func TestGetCredentialsUnconfigured(t *testing.T) {
	env := setupTestEnv(t)

	w := env.makeRequest(t, http.MethodGet, "/storage/credentials", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestSetCredentialsValidation(t *testing.T) {
	env := setupTestEnv(t)

	w := env.makeRequest(t, http.MethodPut, "/storage/credentials", dto.SetCredentialsRequest{
		AccessKey: "only-access-key",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestStorageTestConnection(t *testing.T) {
	env := setupTestEnv(t)

	w := env.makeRequest(t, http.MethodPost, "/storage/test", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d\nBody: %s", w.Code, w.Body.String())
	}
}

func TestStorageTestConnectionUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	unconfigured := service.NewStorageServiceWithClient(nil, nil, zerolog.Nop())
	h := NewStorageHandler(nil, unconfigured)
	router.POST("/storage/test", h.TestConnection)

	env := &testEnv{router: router}
	w := env.makeRequest(t, http.MethodPost, "/storage/test", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d\nBody: %s", w.Code, w.Body.String())
	}
}

func TestUploadFormOptions(t *testing.T) {
	env := setupTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "Quarterly Report.PDF")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte("pdf bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.WriteField("folder", "reports")
	mw.WriteField("preserve_name", "true")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d\nBody: %s", w.Code, w.Body.String())
	}

	var resp dto.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Key != "reports/quarterly-report.pdf" {
		t.Errorf("key = %q, want sanitized name under the requested folder", resp.Key)
	}
	if resp.Path != "/files/"+resp.Key {
		t.Errorf("path = %q, want proxy path for %q", resp.Path, resp.Key)
	}
	if !env.s3.has(resp.Key) {
		t.Error("uploaded object missing from the store")
	}
}

func TestServeFile(t *testing.T) {
	env := setupTestEnv(t)
	env.s3.mu.Lock()
	env.s3.objects["uploads/logo.png"] = []byte("png bytes")
	env.s3.mu.Unlock()

	w := env.makeRequest(t, http.MethodGet, "/files/uploads/logo.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "png bytes" {
		t.Errorf("body = %q, want the stored object", w.Body.String())
	}

	w = env.makeRequest(t, http.MethodGet, "/files/uploads/missing.png", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for a missing object, got %d", w.Code)
	}
}
