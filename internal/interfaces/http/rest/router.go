// Package rest assembles the HTTP API.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"lpp-backend/internal/config"
	"lpp-backend/internal/interfaces/http/rest/handlers"
	"lpp-backend/internal/middleware"
	"lpp-backend/internal/observability"
)

// Router assembles the middleware chain and the archive routes.
type Router struct {
	artifacts *handlers.ArtifactHandler
	catalog   *handlers.CatalogHandler
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Collector
}

// NewRouter creates a new router instance. metrics may be nil, which also
// leaves /metrics unrouted.
func NewRouter(
	artifacts *handlers.ArtifactHandler,
	catalog *handlers.CatalogHandler,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Collector,
) *Router {
	return &Router{
		artifacts: artifacts,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// Setup builds the chi mux. It may be called more than once.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recovery(rt.logger))
	router.Use(middleware.Logger(rt.logger, rt.metrics))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.cfg.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(rt.cfg.RequestTimeout))
		}

		r.Route("/artifacts", func(r chi.Router) {
			r.Get("/", rt.artifacts.ListArtifacts)
			r.Post("/", rt.artifacts.PublishArtifact)
		})

		r.Post("/catalog/refresh", rt.catalog.Refresh)
	})

	return router
}

// healthCheck reports liveness only; it never touches the ledger.
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
