package di

import (
	"testing"
	"time"

	"github.com/aristath/portfoliobot/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:            t.TempDir(),
		Port:               8001,
		OrderCheckInterval: 30 * time.Second,
		LazyCheckAfter:     120 * time.Second,
		MarketDataProvider: config.ProviderYahoo,
		PriceFetchRetries:  1,
		Backup: &config.BackupConfig{
			Enabled:       true,
			Schedule:      "0 0 3 * * *",
			RetentionDays: 30,
		},
	}
}
