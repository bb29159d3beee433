package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	BackendFile   = "file"
	BackendRemote = "remote"
)

// Config holds all runtime settings, loaded once and injected explicitly.
type Config struct {
	DataDir             string
	BackupDir           string
	BackupRetentionDays int

	StoreBackend string
	RemoteAPIURL string
	RemoteRepo   string
	RemoteBranch string
	RemoteToken  string

	AdminEmail    string
	AdminPassword string

	LogLevel    string
	CronEnabled bool
}

// LoadConfig reads configuration from the environment, with a .env file as
// an optional source for local development.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		DataDir:             getEnv("DATA_DIR", "./data"),
		BackupDir:           getEnv("BACKUP_DIR", "./backups"),
		BackupRetentionDays: getEnvInt("BACKUP_RETENTION_DAYS", 30),
		StoreBackend:        getEnv("STORE_BACKEND", BackendFile),
		RemoteAPIURL:        getEnv("REMOTE_API_URL", "https://api.github.com"),
		RemoteRepo:          getEnv("REMOTE_REPO", ""),
		RemoteBranch:        getEnv("REMOTE_BRANCH", "main"),
		RemoteToken:         getEnv("REMOTE_TOKEN", ""),
		AdminEmail:          getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", "admin123"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CronEnabled:         getEnv("CRON_ENABLED", "true") == "true",
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR must be set for the file backend")
		}
	case BackendRemote:
		if c.RemoteRepo == "" {
			return fmt.Errorf("REMOTE_REPO must be set for the remote backend")
		}
		if c.RemoteToken == "" {
			return fmt.Errorf("REMOTE_TOKEN must be set for the remote backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (expected %q or %q)", c.StoreBackend, BackendFile, BackendRemote)
	}

	if c.BackupRetentionDays < 1 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid integer %q, using default %d", value, fallback)
		return fallback
	}
	return n
}
