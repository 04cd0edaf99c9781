package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nvaziri/pgvault/internal/api/dto"
	"github.com/nvaziri/pgvault/internal/core/service"
)

const testJWTSecret = "test-secret"

func newAuthRouter() *gin.Engine {
	authSvc := service.NewAuthService(nil, nil, testJWTSecret, "HS256")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(authSvc))
	router.GET("/ping", func(c *gin.Context) {
		claims, _ := GetAuthClaims(c)
		c.JSON(http.StatusOK, gin.H{"sub": claims.Subject})
	})
	return router
}

func signToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()

	claims := service.TokenClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthMiddlewareRejectsUniformly(t *testing.T) {
	router := newAuthRouter()

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Token abc"},
		{"bare token", signToken(t, "admin", time.Now().Add(time.Hour))},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + signToken(t, "admin", time.Now().Add(-time.Hour))},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d\nBody: %s", w.Code, w.Body.String())
			}
			var resp dto.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("parse: %v", err)
			}
			messages = append(messages, resp.Message)
		})
	}

	// every rejection carries the same body
	for _, msg := range messages {
		if msg != messages[0] {
			t.Errorf("rejection messages differ: %q vs %q", msg, messages[0])
		}
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	router := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+signToken(t, "admin", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d\nBody: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Sub != "admin" {
		t.Errorf("sub = %q, want admin", resp.Sub)
	}
}
