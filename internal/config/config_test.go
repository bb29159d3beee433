package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("BACKUP_RETENTION_DAYS", "")
	t.Setenv("CRON_ENABLED", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 30, cfg.BackupRetentionDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.CronEnabled)
}

func TestLoadConfigRemoteBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendRemote)
	t.Setenv("REMOTE_REPO", "acme/cert-data")
	t.Setenv("REMOTE_TOKEN", "test-token")
	t.Setenv("REMOTE_BRANCH", "data")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "acme/cert-data", cfg.RemoteRepo)
	assert.Equal(t, "data", cfg.RemoteBranch)
	assert.Equal(t, "https://api.github.com", cfg.RemoteAPIURL)
}

func TestLoadConfigRemoteBackendRequiresRepoAndToken(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendRemote)
	t.Setenv("REMOTE_REPO", "")
	t.Setenv("REMOTE_TOKEN", "")

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("REMOTE_REPO", "acme/cert-data")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "s3")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigInvalidInt(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("BACKUP_RETENTION_DAYS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.BackupRetentionDays)
}
