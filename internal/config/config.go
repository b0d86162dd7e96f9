// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Market data providers
const (
	ProviderYahoo  = "yahoo"
	ProviderAlpaca = "alpaca"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases (always absolute)
	Port      int
	DevMode   bool
	LogLevel  string
	LogPretty bool

	OrderCheckInterval time.Duration // Period of the background evaluation pass
	LazyCheckAfter     time.Duration // Interactive requests re-check when the last pass is older than this

	MarketDataProvider string
	PriceFetchRetries  int
	AlpacaAPIKey       string
	AlpacaAPISecret    string
	AlpacaDataURL      string

	Backup *BackupConfig
}

// BackupConfig holds database backup configuration
type BackupConfig struct {
	Enabled       bool
	Schedule      string // cron expression with seconds field
	RetentionDays int
	S3Bucket      string
	S3Region      string
	S3Endpoint    string // Optional, for S3-compatible stores
	S3AccessKeyID string
	S3SecretKey   string
}

// S3Enabled reports whether archives should be uploaded to object storage
func (b *BackupConfig) S3Enabled() bool {
	return b != nil && b.S3Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PORTFOLIOBOT_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("GO_PORT", 8001),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvAsBool("LOG_PRETTY", true),
		OrderCheckInterval: getEnvAsDuration("ORDER_CHECK_INTERVAL", 30*time.Second),
		LazyCheckAfter:     getEnvAsDuration("LAZY_CHECK_AFTER", 120*time.Second),
		MarketDataProvider: strings.ToLower(getEnv("MARKET_DATA_PROVIDER", ProviderYahoo)),
		PriceFetchRetries:  getEnvAsInt("PRICE_FETCH_RETRIES", 3),
		AlpacaAPIKey:       getEnv("ALPACA_API_KEY", ""),
		AlpacaAPISecret:    getEnv("ALPACA_API_SECRET", ""),
		AlpacaDataURL:      getEnv("ALPACA_DATA_URL", ""),
		Backup:             loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.OrderCheckInterval <= 0 {
		return fmt.Errorf("ORDER_CHECK_INTERVAL must be positive, got %s", c.OrderCheckInterval)
	}

	switch c.MarketDataProvider {
	case ProviderYahoo:
	case ProviderAlpaca:
		if c.AlpacaAPIKey == "" || c.AlpacaAPISecret == "" {
			return fmt.Errorf("alpaca market data requires ALPACA_API_KEY and ALPACA_API_SECRET")
		}
	default:
		return fmt.Errorf("unknown market data provider: %q", c.MarketDataProvider)
	}

	if c.PriceFetchRetries < 1 {
		c.PriceFetchRetries = 1
	}

	return nil
}

// DatabasePath returns the absolute path of a database file in the data directory
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:       getEnvAsBool("BACKUP_ENABLED", false),
		Schedule:      getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"), // 03:00 daily
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("S3_REGION", "auto"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID: getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("S3_SECRET_ACCESS_KEY", ""),
	}
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

// getEnvAsDuration accepts Go durations ("45s") or bare seconds ("45")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
