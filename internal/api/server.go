package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nvaziri/pgvault/internal/api/handler"
	"github.com/nvaziri/pgvault/internal/api/middleware"
	"github.com/nvaziri/pgvault/internal/core/service"
	"github.com/nvaziri/pgvault/pkg/config"
)

type Server struct {
	router *gin.Engine
	srv    *http.Server
	config *config.Config
	log    zerolog.Logger
}

// NewServer wires handlers and routes. The registrar keeps cron timers
// in sync with schedule writes and may be nil in tests.
func NewServer(
	cfg *config.Config,
	authService *service.AuthService,
	backupService *service.BackupService,
	scheduleService *service.ScheduleService,
	cleanupService *service.CleanupService,
	credentialService *service.CredentialService,
	storageService *service.StorageService,
	registrar handler.ScheduleRegistrar,
	log zerolog.Logger,
) *Server {
	if !cfg.IsDevMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandlerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	backupHandler := handler.NewBackupHandler(backupService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, registrar)
	cleanupHandler := handler.NewCleanupHandler(cleanupService)
	storageHandler := handler.NewStorageHandler(credentialService, storageService)
	fileHandler := handler.NewFileHandler(storageService)

	// Public routes (no auth required)
	auth := router.Group("/auth")
	{
		auth.POST("/authorize", authHandler.Authorize)
		auth.POST("/token", authHandler.Token)
	}

	router.GET("/files/*key", fileHandler.ServeFile)

	// Admin routes (auth required)
	authMiddleware := middleware.AuthMiddleware(authService)

	admin := router.Group("/api/admin")
	admin.Use(authMiddleware)
	{
		admin.GET("/backups", backupHandler.ListBackups)
		admin.POST("/backups/create", backupHandler.CreateBackup)
		admin.GET("/backups/:id", backupHandler.GetBackup)
		admin.GET("/backups/:id/download", backupHandler.DownloadBackup)
		admin.DELETE("/backups/:id", backupHandler.DeleteBackup)

		admin.GET("/backup-schedules", scheduleHandler.ListSchedules)
		admin.POST("/backup-schedules", scheduleHandler.CreateSchedule)
		admin.GET("/backup-schedules/:id", scheduleHandler.GetSchedule)
		admin.PUT("/backup-schedules/:id", scheduleHandler.UpdateSchedule)
		admin.DELETE("/backup-schedules/:id", scheduleHandler.DeleteSchedule)

		admin.POST("/storage/test", storageHandler.TestConnection)
		admin.PUT("/storage/credentials", storageHandler.SetCredentials)
		admin.GET("/storage/credentials", storageHandler.GetCredentials)

		admin.POST("/uploads", storageHandler.Upload)
		admin.POST("/uploads/private", storageHandler.UploadPrivate)
		admin.GET("/uploads/url/*key", storageHandler.SignedURL)

		admin.POST("/cleanup", cleanupHandler.Cleanup)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	return &Server{
		router: router,
		config: cfg,
		log:    log,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)

	s.srv = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start with or without SSL
	if s.config.SSLCert != "" && s.config.SSLKey != "" {
		s.log.Info().Str("addr", addr).Msg("starting HTTPS server")
		return s.srv.ListenAndServeTLS(s.config.SSLCert, s.config.SSLKey)
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
