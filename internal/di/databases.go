// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/portfoliobot/internal/config"
	"github.com/aristath/portfoliobot/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. portfolio.db - accounts, lots and orders. Executions must survive a crash.
	portfolioDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("portfolio"),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize portfolio database: %w", err)
	}
	container.PortfolioDB = portfolioDB

	// 2. cache.db - ticker validation and historical closes, safe to lose
	cacheDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("cache"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		portfolioDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	for name, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")

	return container, nil
}
