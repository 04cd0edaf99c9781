package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	// Required fields
	DatabaseURL  string `mapstructure:"database_url"` // postgres URL handed to pg_dump
	JWTSecretKey string `mapstructure:"jwt_secret_key"`

	// Registry database (backup metadata). Defaults to the same
	// postgres instance that gets backed up.
	RegistryDriver string `mapstructure:"registry_driver"` // "postgres" or "sqlite"
	RegistryDSN    string `mapstructure:"registry_dsn"`

	// Optional API settings
	APIHost string `mapstructure:"api_host"`
	APIPort int    `mapstructure:"api_port"`

	// Optional SSL settings
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`

	// Optional CORS settings
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Optional logging settings
	LogLevel string `mapstructure:"log_level"`

	// Optional JWT settings
	JWTAlgorithm string `mapstructure:"jwt_algorithm"`

	// Optional backup engine settings
	TmpDir             string `mapstructure:"tmp_dir"`
	DumpTimeoutMinutes int    `mapstructure:"dump_timeout_minutes"`

	ConfigPath string
}

const (
	DefaultConfigPath         = "/etc/pgvault/config.yml"
	DefaultAPIHost            = "0.0.0.0"
	DefaultAPIPort            = 8440
	DefaultLogLevel           = "info"
	DefaultJWTAlgorithm       = "HS256"
	DefaultRegistryDriver     = "postgres"
	DefaultDumpTimeoutMinutes = 30
)

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Set defaults
	viper.SetDefault("api_host", DefaultAPIHost)
	viper.SetDefault("api_port", DefaultAPIPort)
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("jwt_algorithm", DefaultJWTAlgorithm)
	viper.SetDefault("registry_driver", DefaultRegistryDriver)
	viper.SetDefault("dump_timeout_minutes", DefaultDumpTimeoutMinutes)

	// Allow environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvPrefix("PGVAULT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ConfigPath = configPath

	if cfg.RegistryDSN == "" {
		cfg.RegistryDSN = cfg.DatabaseURL
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}

	if c.JWTSecretKey == "" {
		return fmt.Errorf("jwt_secret_key is required")
	}

	if c.RegistryDriver != "postgres" && c.RegistryDriver != "sqlite" {
		return fmt.Errorf("registry_driver must be 'postgres' or 'sqlite'")
	}

	if c.TmpDir != "" {
		if _, err := os.Stat(c.TmpDir); os.IsNotExist(err) {
			return fmt.Errorf("tmp_dir does not exist: %s", c.TmpDir)
		}
	}

	// Validate SSL config if provided
	if c.SSLCert != "" || c.SSLKey != "" {
		if c.SSLCert == "" || c.SSLKey == "" {
			return fmt.Errorf("both ssl_cert and ssl_key must be provided")
		}
		if _, err := os.Stat(c.SSLCert); os.IsNotExist(err) {
			return fmt.Errorf("ssl_cert file does not exist: %s", c.SSLCert)
		}
		if _, err := os.Stat(c.SSLKey); os.IsNotExist(err) {
			return fmt.Errorf("ssl_key file does not exist: %s", c.SSLKey)
		}
	}

	return nil
}

func (c *Config) IsDevMode() bool {
	return os.Getenv("PGVAULT_DEV_MODE") == "1"
}
