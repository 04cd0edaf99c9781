package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nvaziri/pgvault/internal/api/handler"
	"github.com/nvaziri/pgvault/internal/core/repository"
	"github.com/nvaziri/pgvault/internal/core/service"
	"github.com/nvaziri/pgvault/internal/infrastructure/store"
	"github.com/nvaziri/pgvault/internal/scheduler"
	"github.com/nvaziri/pgvault/internal/vault"
	"github.com/nvaziri/pgvault/pkg/config"
)

// encryptionSecretEnv holds the vault secret. It is deliberately not
// part of the config file so the secret never lands on disk next to
// the credentials it protects.
const encryptionSecretEnv = "PGVAULT_ENCRYPTION_SECRET"

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pgvault",
	Short: "PgVault - PostgreSQL backup management",
	Long: `PgVault manages logical PostgreSQL backups stored in S3-compatible
object storage.

It provides:
- pg_dump backups compressed with gzip and uploaded to object storage
- Scheduled backups with retention policies
- Encrypted at-rest storage credentials
- REST API for remote management
- OAuth2 authentication`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/pgvault/config.yml)")
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// initServices initializes the registry, repositories and services
// shared by every subcommand.
func initServices(ctx context.Context) (*Services, error) {
	log := newLogger()

	db, err := store.Open(cfg.RegistryDriver, cfg.RegistryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	userRepo := store.NewUserRepository(db)
	authCodeRepo := store.NewAuthCodeRepository(db)
	backupRepo := store.NewBackupRepository(db)
	scheduleRepo := store.NewScheduleRepository(db)
	credRepo := store.NewCredentialRepository(db)

	secret := os.Getenv(encryptionSecretEnv)
	if secret == "" {
		log.Warn().Msgf("%s is not set, storage credentials will be stored unencrypted", encryptionSecretEnv)
	}
	v := vault.New(secret)

	credentialService := service.NewCredentialService(credRepo, v)
	storageService := service.NewStorageService(credentialService, log)
	if err := storageService.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to load storage credentials")
	}

	authService := service.NewAuthService(userRepo, authCodeRepo, cfg.JWTSecretKey, cfg.JWTAlgorithm)
	backupService := service.NewBackupService(backupRepo, storageService, service.PgDumper{}, service.BackupConfig{
		DatabaseURL: cfg.DatabaseURL,
		TmpDir:      cfg.TmpDir,
		DumpTimeout: time.Duration(cfg.DumpTimeoutMinutes) * time.Minute,
	}, log)
	scheduleService := service.NewScheduleService(scheduleRepo, backupRepo)
	cleanupService := service.NewCleanupService(backupRepo, scheduleRepo, storageService, log)

	sched := scheduler.New(backupService, cleanupService, scheduleRepo, log)

	return &Services{
		DB:                db,
		Log:               log,
		Vault:             v,
		UserRepo:          userRepo,
		ScheduleRepo:      scheduleRepo,
		BackupRepo:        backupRepo,
		AuthService:       authService,
		BackupService:     backupService,
		ScheduleService:   scheduleService,
		CleanupService:    cleanupService,
		CredentialService: credentialService,
		StorageService:    storageService,
		Scheduler:         sched,
	}, nil
}

// Services holds all initialized services
type Services struct {
	DB                *store.DB
	Log               zerolog.Logger
	Vault             *vault.Vault
	UserRepo          repository.UserRepository
	ScheduleRepo      repository.ScheduleRepository
	BackupRepo        repository.BackupRepository
	AuthService       *service.AuthService
	BackupService     *service.BackupService
	ScheduleService   *service.ScheduleService
	CleanupService    *service.CleanupService
	CredentialService *service.CredentialService
	StorageService    *service.StorageService
	Scheduler         *scheduler.Scheduler
}

var _ handler.ScheduleRegistrar = (*scheduler.Scheduler)(nil)

// Close closes all resources
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
