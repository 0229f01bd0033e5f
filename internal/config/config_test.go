package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("GHOST_DATA_DIR", t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "bitcoin", cfg.ReferenceAssetID)
	assert.Equal(t, 10*time.Second, cfg.FeedTimeout)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.Backup.Enabled())
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("GHOST_DATA_DIR", t.TempDir())

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("GHOST_DATA_DIR", t.TempDir())
	t.Setenv("GHOST_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REFERENCE_ASSET", "ethereum")
	t.Setenv("FEED_TIMEOUT_SECONDS", "3")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ethereum", cfg.ReferenceAssetID)
	assert.Equal(t, 3*time.Second, cfg.FeedTimeout)
}

func TestBackupConfig_Enabled(t *testing.T) {
	full := &BackupConfig{
		Endpoint:  "https://s3.example.com",
		Bucket:    "backups",
		AccessKey: "key",
		SecretKey: "secret",
	}
	assert.True(t, full.Enabled())

	partial := &BackupConfig{Endpoint: "https://s3.example.com", Bucket: "backups"}
	assert.False(t, partial.Enabled())

	var nilConfig *BackupConfig
	assert.False(t, nilConfig.Enabled())
}
