// Package main is the entry point for portfoliobot, a conditional order engine
// for a self-hosted portfolio tracker.
//
// Owners place limit-style BUY and SELL orders against tickers. A background
// pass compares every PENDING order with the current market price and, when the
// condition holds, executes it against the owner's portfolio lots.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/portfoliobot/internal/config"
	"github.com/aristath/portfoliobot/internal/di"
	"github.com/aristath/portfoliobot/internal/server"
	"github.com/aristath/portfoliobot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// main orchestrates the startup sequence:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires all dependencies via the DI container (databases, repositories, services, jobs)
// 4. Starts the HTTP server and the scheduler
// 5. Waits for a shutdown signal, then stops the server, lets the in-flight pass
//    finish and closes the databases
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("market_data", cfg.MarketDataProvider).
		Dur("order_check_interval", cfg.OrderCheckInterval).
		Msg("Starting portfoliobot")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		DataDir:    cfg.DataDir,
		Databases:  container.Databases(),
		EventBus:   container.EventBus,
		MarketData: container.MarketData,
		Engine:     container.Engine,
		Archives:   container.ArchiveService,
		Modules:    container.Modules(),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started")

	// The first order check runs one interval after startup
	jobs.Scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests before the scheduler so no manual check starts mid-shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Waits for an in-flight evaluation pass to complete
	stopped := make(chan struct{})
	go func() {
		jobs.Scheduler.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Scheduler did not stop before the shutdown deadline")
	}

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close databases")
	}

	log.Info().Msg("Server stopped")
}
