// Package api provides the HTTP read API for aqstream.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/aqstream/aqstream/internal/api/handler"
	"github.com/aqstream/aqstream/internal/api/middleware"
	"github.com/aqstream/aqstream/internal/auth"
	"github.com/aqstream/aqstream/internal/reading"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	Metrics        *middleware.Metrics
	JWTService     *auth.JWTService
	ReadingService *reading.Service

	// Checks are the dependency probes behind /v1/ops/ready and
	// /v1/ops/status.
	Checks []handler.SubsystemCheck

	// AllowedOrigins restricts CORS; empty allows any origin, which
	// suits a read-only dashboard API.
	AllowedOrigins []string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing()) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}).Handler)
	r.Use(middleware.ContentTypeJSON) // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Checks)
	readingsHandler := handler.NewReadingsHandler(cfg.ReadingService)

	opsAuth := middleware.OpsAuth(cfg.JWTService)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 120 req/min
	opsRateLimit := middleware.RateLimitByIP(middleware.OpsRateLimit)           // 30 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires an operator token
			r.With(opsRateLimit, opsAuth).Get("/status", opsHandler.SystemStatus)
		})

		// Reading endpoints (public, read only)
		r.Route("/readings", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/latest", readingsHandler.Latest)
			r.Route("/{channel}", func(r chi.Router) {
				r.Get("/latest", readingsHandler.LatestByChannel)
				r.Get("/history", readingsHandler.History)
			})
		})
	})

	return r
}
