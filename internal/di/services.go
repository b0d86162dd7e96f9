// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aristath/portfoliobot/internal/config"
	"github.com/aristath/portfoliobot/internal/events"
	"github.com/aristath/portfoliobot/internal/marketdata"
	accountshandlers "github.com/aristath/portfoliobot/internal/modules/accounts/handlers"
	"github.com/aristath/portfoliobot/internal/modules/orders"
	ordershandlers "github.com/aristath/portfoliobot/internal/modules/orders/handlers"
	"github.com/aristath/portfoliobot/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/portfoliobot/internal/modules/portfolio/handlers"
	"github.com/aristath/portfoliobot/internal/reliability"
	"github.com/aristath/portfoliobot/internal/server"
	"github.com/aristath/portfoliobot/internal/services"
	"github.com/rs/zerolog"
)

// s3InitTimeout bounds loading the AWS configuration at startup
const s3InitTimeout = 30 * time.Second

// InitializeServices creates services and handlers.
// Repositories must be initialized first.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Events
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	// Market data: upstream provider behind the msgpack cache
	upstream, err := marketdata.NewProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create market data provider: %w", err)
	}
	container.MarketData = marketdata.NewCachedProvider(upstream, container.ClientDataRepo, log)

	// Portfolio
	container.PortfolioService = portfolio.NewService(container.LotRepo, container.AccountRepo, log)

	// Orders and the engine
	container.OrderService = orders.NewService(
		container.OrderRepo,
		container.LotRepo,
		container.AccountRepo,
		container.MarketData,
		container.EventManager,
		log,
	)
	container.Engine = services.NewOrderExecutionService(
		container.PortfolioDB.Conn(),
		container.OrderRepo,
		container.LotRepo,
		container.MarketData,
		container.EventManager,
		log,
	)
	// Wired after construction: the engine and the order service share the repositories
	container.OrderService.SetEngine(container.Engine, cfg.LazyCheckAfter)

	// Backups
	container.BackupService = reliability.NewBackupService(
		container.Databases(),
		filepath.Join(cfg.DataDir, "backups"),
		log,
	)
	if cfg.Backup.S3Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), s3InitTimeout)
		defer cancel()

		store, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Bucket:          cfg.Backup.S3Bucket,
			Region:          cfg.Backup.S3Region,
			Endpoint:        cfg.Backup.S3Endpoint,
			AccessKeyID:     cfg.Backup.S3AccessKeyID,
			SecretAccessKey: cfg.Backup.S3SecretKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		container.ArchiveService = reliability.NewArchiveBackupService(
			store,
			container.BackupService,
			cfg.DataDir,
			container.EventManager,
			log,
		)
	}

	// HTTP handlers
	container.ExecutionFeed = server.NewExecutionFeed(container.EventBus, log)
	container.AccountsHandler = accountshandlers.NewHandler(container.AccountRepo, log)
	container.PortfolioHandler = portfoliohandlers.NewHandler(container.PortfolioService, log)
	container.OrdersHandler = ordershandlers.NewHandler(
		container.OrderService,
		container.Engine,
		cfg.OrderCheckInterval,
		log,
	)
	container.OrdersHandler.SetExecutionFeed(container.ExecutionFeed)

	log.Info().
		Str("market_data", cfg.MarketDataProvider).
		Bool("s3_archives", container.ArchiveService != nil).
		Msg("Services initialized")

	return nil
}
