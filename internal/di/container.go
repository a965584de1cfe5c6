// Package di wires the application's components together.
package di

import (
	"net/http"

	"go.uber.org/zap"

	"lpp-backend/internal/catalog"
	"lpp-backend/internal/config"
	"lpp-backend/internal/events"
	"lpp-backend/internal/interfaces/http/rest"
	"lpp-backend/internal/ledger"
	"lpp-backend/internal/observability"
	"lpp-backend/internal/publisher"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logging   Logging
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Gateway   ledger.Gateway
	Catalog   *catalog.Service
	Publisher *publisher.Publisher
	Notifier  events.Notifier
	Router    *rest.Router
}

// Handler returns the fully configured HTTP handler.
func (c *Container) Handler() http.Handler {
	return c.Router.Setup()
}
