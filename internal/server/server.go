// Package server provides the HTTP server and routing for portfoliobot.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/portfoliobot/internal/database"
	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/aristath/portfoliobot/internal/events"
	"github.com/aristath/portfoliobot/internal/reliability"
)

// RouteRegistrar mounts a module's routes under /api
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds server configuration
type Config struct {
	Log        zerolog.Logger
	Port       int
	DevMode    bool
	DataDir    string
	Databases  map[string]*database.DB
	EventBus   *events.Bus
	MarketData domain.MarketDataProvider
	Engine     EngineStatusProvider
	Archives   *reliability.ArchiveBackupService // nil when S3 is not configured
	Modules    []RouteRegistrar
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	modules        []RouteRegistrar
	eventBus       *events.Bus
	systemHandlers *SystemHandlers
	marketHandlers *MarketHandlers
	backupHandlers *BackupHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()

	s := &Server{
		router:         chi.NewRouter(),
		log:            log,
		port:           cfg.Port,
		modules:        cfg.Modules,
		eventBus:       cfg.EventBus,
		systemHandlers: NewSystemHandlers(cfg.Databases, cfg.Engine, cfg.DataDir, cfg.Log),
		marketHandlers: NewMarketHandlers(cfg.MarketData, cfg.Log),
		backupHandlers: NewBackupHandlers(cfg.Archives, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Streams (SSE, websocket) are long-lived, so no write timeout
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compression buffers SSE frames, so it is limited to JSON responses
	if !devMode {
		s.router.Use(middleware.Compress(5, "application/json"))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if s.eventBus != nil {
			r.Get("/events/stream", NewEventsStreamHandler(s.eventBus, s.log).ServeHTTP)
		}

		r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
		r.Get("/market/history", s.marketHandlers.HandleHistory)

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.backupHandlers.HandleList)
			r.Post("/", s.backupHandlers.HandleCreate)
		})

		for _, module := range s.modules {
			module.RegisterRoutes(r)
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
