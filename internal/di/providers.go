package di

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"lpp-backend/internal/cache"
	"lpp-backend/internal/catalog"
	"lpp-backend/internal/codec"
	"lpp-backend/internal/config"
	"lpp-backend/internal/events"
	"lpp-backend/internal/interfaces/http/rest/handlers"
	"lpp-backend/internal/ledger"
	"lpp-backend/internal/ledger/memledger"
	"lpp-backend/internal/ledger/rpc"
	"lpp-backend/internal/logging"
	"lpp-backend/internal/observability"
	"lpp-backend/internal/publisher"
)

// Logging pairs the root logger with the level that controls it.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// ProvideLogging creates the root logger
func ProvideLogging(cfg *config.Config) (Logging, error) {
	logger, level, err := logging.New(string(cfg.Environment), cfg.LogLevel)
	if err != nil {
		return Logging{}, err
	}
	return Logging{Logger: logger, Level: level}, nil
}

// ProvideLogger extracts the root logger
func ProvideLogger(l Logging) *zap.Logger {
	return l.Logger
}

// ProvideMetrics creates the prometheus collector, or nil when metrics are
// disabled.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("lpp")
}

// ProvideTracing installs the OTLP tracer provider when tracing is enabled.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, "lpp-backend", string(cfg.Environment), cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideProgramID parses the archive program address.
func ProvideProgramID(cfg *config.Config) (ledger.PublicKey, error) {
	program, err := ledger.ParsePublicKey(cfg.Ledger.ProgramID)
	if err != nil {
		return ledger.PublicKey{}, fmt.Errorf("invalid PROGRAM_ID: %w", err)
	}
	return program, nil
}

// ProvideGateway creates the ledger gateway for the configured mode.
func ProvideGateway(cfg *config.Config, program ledger.PublicKey, logger *zap.Logger, metrics *observability.Collector) ledger.Gateway {
	if cfg.Ledger.Mode == config.LedgerModeMemory {
		logger.Warn("Using the in-memory ledger; records are lost on restart")
		return memledger.New(program, memledger.WithLogger(logger))
	}
	return rpc.NewClient(cfg.Ledger, cfg.Breaker, logger, metrics)
}

// ProvidePayer loads the fee payer keypair. Without a key file publishing is
// disabled, except in memory mode where a throwaway payer is generated.
func ProvidePayer(cfg *config.Config, logger *zap.Logger) (ledger.Keypair, error) {
	if cfg.Ledger.PayerKeypairPath != "" {
		payer, err := ledger.LoadKeypairFile(cfg.Ledger.PayerKeypairPath)
		if err != nil {
			return ledger.Keypair{}, err
		}
		logger.Info("Loaded payer keypair", zap.String("payer", payer.PublicKey().String()))
		return payer, nil
	}
	if cfg.Ledger.Mode == config.LedgerModeMemory {
		return ledger.NewKeypair()
	}
	logger.Info("No payer keypair configured, publishing is disabled")
	return ledger.Keypair{}, nil
}

// ProvideCodec creates the metadata codec
func ProvideCodec(cfg *config.Config) *codec.Codec {
	return codec.New(cfg.GatewayBaseURL)
}

// ProvideCatalogCache creates the session cache holding the last catalog
func ProvideCatalogCache(logger *zap.Logger, metrics *observability.Collector) *cache.Session[*catalog.Catalog] {
	return cache.NewSession[*catalog.Catalog]("catalog", logger, metrics)
}

// ProvideCatalogBuilder creates the catalog builder
func ProvideCatalogBuilder(
	gw ledger.Gateway,
	c *codec.Codec,
	program ledger.PublicKey,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Collector,
) *catalog.Builder {
	return catalog.NewBuilder(gw, c, program, cfg.Ledger.PageLimit, logger, metrics)
}

// ProvideNotifier creates the EventBridge notifier, or a no-op one when no
// event bus is configured.
func ProvideNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (events.Notifier, error) {
	if cfg.EventBusName == "" {
		return events.NopNotifier{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return events.NewEventBridgeNotifier(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger), nil
}

// ProvidePublisher creates the record publisher
func ProvidePublisher(
	gw ledger.Gateway,
	c *codec.Codec,
	program ledger.PublicKey,
	notifier events.Notifier,
	logger *zap.Logger,
	metrics *observability.Collector,
) *publisher.Publisher {
	return publisher.New(gw, c, program, notifier, logger, metrics)
}

// ProvideArtifactHandler creates the artifact HTTP handler
func ProvideArtifactHandler(svc *catalog.Service, pub *publisher.Publisher, payer ledger.Keypair, logger *zap.Logger) *handlers.ArtifactHandler {
	return handlers.NewArtifactHandler(svc, pub, payer, logger)
}

// ProvideCatalogHandler creates the catalog HTTP handler
func ProvideCatalogHandler(svc *catalog.Service, logger *zap.Logger) *handlers.CatalogHandler {
	return handlers.NewCatalogHandler(svc, logger)
}
