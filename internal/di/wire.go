//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"lpp-backend/internal/catalog"
	"lpp-backend/internal/config"
	"lpp-backend/internal/interfaces/http/rest"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogging,
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	ProvideProgramID,
	ProvideGateway,
	ProvidePayer,
	ProvideCodec,
	ProvideCatalogCache,
	ProvideCatalogBuilder,
	catalog.NewService,
	ProvideNotifier,
	ProvidePublisher,
	ProvideArtifactHandler,
	ProvideCatalogHandler,
	rest.NewRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// flushes telemetry and must run before the process exits.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
