/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency of the application. It is
 * created by Wire() and handed to the HTTP server and the scheduler.
 */
package di

import (
	"github.com/aristath/portfoliobot/internal/clientdata"
	"github.com/aristath/portfoliobot/internal/database"
	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/aristath/portfoliobot/internal/events"
	"github.com/aristath/portfoliobot/internal/modules/accounts"
	accountshandlers "github.com/aristath/portfoliobot/internal/modules/accounts/handlers"
	"github.com/aristath/portfoliobot/internal/modules/orders"
	ordershandlers "github.com/aristath/portfoliobot/internal/modules/orders/handlers"
	"github.com/aristath/portfoliobot/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/portfoliobot/internal/modules/portfolio/handlers"
	"github.com/aristath/portfoliobot/internal/reliability"
	"github.com/aristath/portfoliobot/internal/scheduler"
	"github.com/aristath/portfoliobot/internal/server"
	"github.com/aristath/portfoliobot/internal/services"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: portfolio.db (accounts, lots, orders; ledger profile) and cache.db (market data cache)
 * - Clients: market data provider (yahoo or alpaca) behind a caching decorator
 * - Repositories: accounts, lots, orders, cached market data
 * - Services: portfolio, order placement, the order lifecycle engine, backups
 * - Handlers: per-module route registrars mounted under /api
 */
type Container struct {
	// Databases
	PortfolioDB *database.DB
	CacheDB     *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Market data
	MarketData     domain.MarketDataProvider
	ClientDataRepo *clientdata.Repository

	// Repositories
	AccountRepo *accounts.Repository
	LotRepo     *portfolio.LotRepository
	OrderRepo   *orders.OrderRepository

	// Services
	PortfolioService *portfolio.Service
	OrderService     *orders.Service
	Engine           *services.OrderExecutionService
	BackupService    *reliability.BackupService
	ArchiveService   *reliability.ArchiveBackupService // nil when S3 is not configured

	// HTTP
	AccountsHandler  *accountshandlers.Handler
	PortfolioHandler *portfoliohandlers.Handler
	OrdersHandler    *ordershandlers.Handler
	ExecutionFeed    *server.ExecutionFeed
}

// JobInstances holds the scheduler and every registered job
type JobInstances struct {
	Scheduler *scheduler.Scheduler

	OrderCheck    *scheduler.OrderCheckJob
	WALCheckpoint *scheduler.CheckWALCheckpointsJob
	CacheCleanup  *clientdata.CleanupJob
	DailyBackup   *reliability.DailyBackupJob // nil when backups are disabled
	Vacuum        *reliability.VacuumJob
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.PortfolioDB != nil {
		dbs["portfolio"] = c.PortfolioDB
	}
	if c.CacheDB != nil {
		dbs["cache"] = c.CacheDB
	}
	return dbs
}

// Modules returns the route registrars mounted under /api
func (c *Container) Modules() []server.RouteRegistrar {
	return []server.RouteRegistrar{
		c.AccountsHandler,
		c.PortfolioHandler,
		c.OrdersHandler,
	}
}

// Close closes every open database
func (c *Container) Close() error {
	var firstErr error
	for _, db := range []*database.DB{c.PortfolioDB, c.CacheDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
