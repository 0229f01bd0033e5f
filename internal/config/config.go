// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Identity
	JWTSecret string
	TokenTTL  time.Duration

	// Market data feed
	LivePriceURL     string // CoinGecko-compatible simple-price endpoint
	CatalogueURL     string // Coin catalogue (id, name, symbol, image)
	FiatRateURL      string // USD→BRL quote endpoint
	ReferenceAssetID string // Benchmark coin included in every rollup entry
	FeedTimeout      time.Duration

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup settings. Backups run only when
// an endpoint, bucket and credentials are all configured.
type BackupConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Schedule  string // cron spec, e.g. "0 2 * * *"
	KeepLast  int
}

// Enabled reports whether backup credentials are fully configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Endpoint != "" && b.Bucket != "" && b.AccessKey != "" && b.SecretKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Resolve the data directory to an absolute path and make sure it exists
	dataDir := getEnv("GHOST_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GHOST_PORT", 8000),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		JWTSecret: getEnv("JWT_SECRET_KEY", ""),
		TokenTTL:  time.Duration(getEnvAsInt("JWT_TTL_MINUTES", 60)) * time.Minute,

		LivePriceURL:     getEnv("LIVE_PRICE", "https://api.coingecko.com/api/v3/simple/price"),
		CatalogueURL:     getEnv("MAP", "https://api.coingecko.com/api/v3/coins/markets?vs_currency=usd"),
		FiatRateURL:      getEnv("USD", "https://economia.awesomeapi.com.br/last/USD-BRL"),
		ReferenceAssetID: getEnv("REFERENCE_ASSET", "bitcoin"),
		FeedTimeout:      time.Duration(getEnvAsInt("FEED_TIMEOUT_SECONDS", 10)) * time.Second,

		Backup: &BackupConfig{
			Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
			Bucket:    getEnv("BACKUP_S3_BUCKET", ""),
			AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
			Schedule:  getEnv("BACKUP_SCHEDULE", "0 2 * * *"),
			KeepLast:  getEnvAsInt("BACKUP_KEEP_LAST", 7),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
