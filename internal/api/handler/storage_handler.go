package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvaziri/pgvault/internal/api/dto"
	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/service"
	"github.com/nvaziri/pgvault/internal/storage"
)

const maskedSecret = "********"

type StorageHandler struct {
	credentialService *service.CredentialService
	storageService    *service.StorageService
}

func NewStorageHandler(credentialService *service.CredentialService, storageService *service.StorageService) *StorageHandler {
	return &StorageHandler{
		credentialService: credentialService,
		storageService:    storageService,
	}
}

// TestConnection handles POST /storage/test
func (h *StorageHandler) TestConnection(c *gin.Context) {
	if err := h.storageService.TestConnection(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StorageTestResponse{Status: "ok"})
}

// SetCredentials handles PUT /storage/credentials. The live client is
// rebuilt so the new credentials take effect without a restart.
func (h *StorageHandler) SetCredentials(c *gin.Context) {
	var req dto.SetCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	credential, err := h.credentialService.SetCredentials(c.Request.Context(), service.SetCredentialsInput{
		AccessKey:   req.AccessKey,
		SecretKey:   req.SecretKey,
		Region:      req.Region,
		Bucket:      req.Bucket,
		Endpoint:    req.Endpoint,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.storageService.Reload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal Server Error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, toCredentialResponse(credential, req.AccessKey))
}

// GetCredentials handles GET /storage/credentials
func (h *StorageHandler) GetCredentials(c *gin.Context) {
	credential, err := h.credentialService.GetCredentials(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal Server Error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if credential == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: "No storage credentials configured",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, toCredentialResponse(credential, credential.AccessKey))
}

// Upload handles POST /uploads: publicly served files, responded with
// the stable proxy path.
func (h *StorageHandler) Upload(c *gin.Context) {
	h.upload(c, false)
}

// UploadPrivate handles POST /uploads/private: key only, access goes
// through signed URLs.
func (h *StorageHandler) UploadPrivate(c *gin.Context) {
	h.upload(c, true)
}

func (h *StorageHandler) upload(c *gin.Context, private bool) {
	client := h.storageService.Client()
	if client == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "Service Unavailable",
			Message: "object storage is not configured",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "file field is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	opts := storage.UploadOptions{
		Folder:       c.PostForm("folder"),
		PreserveName: c.PostForm("preserve_name") == "true",
	}

	if private {
		key, err := client.UploadPrivateFile(c.Request.Context(), fileHeader.Filename, file, contentType, opts)
		if err != nil {
			c.JSON(http.StatusBadGateway, dto.ErrorResponse{
				Error:   "Bad Gateway",
				Message: err.Error(),
				Code:    http.StatusBadGateway,
			})
			return
		}
		c.JSON(http.StatusCreated, dto.PrivateUploadResponse{Key: key})
		return
	}

	path, key, err := client.UploadPublicFile(c.Request.Context(), fileHeader.Filename, file, contentType, opts)
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Bad Gateway",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}
	c.JSON(http.StatusCreated, dto.UploadResponse{Path: path, Key: key})
}

// SignedURL handles GET /uploads/*key/url style lookups
// (GET /uploads/:key/url with the key URL-encoded).
func (h *StorageHandler) SignedURL(c *gin.Context) {
	client := h.storageService.Client()
	if client == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not Found",
			Message: "object storage is not configured",
			Code:    http.StatusNotFound,
		})
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "key is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	var ttl time.Duration
	if raw := c.Query("expires_in"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad Request",
				Message: "expires_in must be a positive number of seconds",
				Code:    http.StatusBadRequest,
			})
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	url, err := client.SignedURL(c.Request.Context(), key, ttl)
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Bad Gateway",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}

	c.JSON(http.StatusOK, dto.SignedURLResponse{URL: url})
}

func toCredentialResponse(credential *domain.StorageCredential, accessKey string) dto.CredentialResponse {
	return dto.CredentialResponse{
		AccessKey:   accessKey,
		SecretKey:   maskedSecret,
		Region:      credential.Region,
		Bucket:      credential.Bucket,
		Endpoint:    credential.Endpoint,
		Description: credential.Description,
		Encrypted:   credential.KeyScheme == domain.KeySchemeAESCBC,
		UpdatedAt:   credential.UpdatedAt,
	}
}
