package catalog

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"lpp-backend/internal/cache"
	"lpp-backend/internal/domain"
)

const buildKey = "catalog"

// Service serves catalogs to the rest of the application: from the session
// cache when asked to prefetch, otherwise by rebuilding. Concurrent callers
// share one in-flight walk of the ledger.
type Service struct {
	builder *Builder
	cache   *cache.Session[*Catalog]
	group   singleflight.Group
	logger  *zap.Logger
}

// NewService creates a service that stores builds in c.
func NewService(builder *Builder, c *cache.Session[*Catalog], logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		builder: builder,
		cache:   c,
		logger:  logger.With(zap.String("component", "catalog_service")),
	}
}

// Prefetch returns the cached catalog when there is one, making no ledger
// calls, and otherwise builds and caches a new one.
func (s *Service) Prefetch(ctx context.Context) (*Catalog, error) {
	if cat, ok := s.cache.Get(); ok {
		return cat, nil
	}
	return s.build(ctx)
}

// Load always rebuilds the catalog and overwrites the cache with the result.
func (s *Service) Load(ctx context.Context) (*Catalog, error) {
	return s.build(ctx)
}

// Cached returns the cached catalog without building.
func (s *Service) Cached() (*Catalog, bool) {
	return s.cache.Get()
}

// build joins the in-flight build or starts one. The build itself is not
// tied to any caller: it runs to completion and is cached even when every
// caller has stopped waiting. A caller whose ctx ends first gets ctx.Err().
func (s *Service) build(ctx context.Context) (*Catalog, error) {
	ch := s.group.DoChan(buildKey, func() (interface{}, error) {
		cat := s.builder.Build(context.WithoutCancel(ctx))
		s.cache.Set(cat)
		return cat, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Joined in-flight catalog build")
		}
		return res.Val.(*Catalog), nil
	case <-ctx.Done():
		s.logger.Debug("Stopped waiting for catalog build", zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

// QueryOptions selects the records a browse request wants.
type QueryOptions struct {
	domain.Query
	Prefetch bool
}

// Query obtains a catalog (cached when opts.Prefetch is set) and filters it.
// The catalog is returned alongside the matches for its report.
func (s *Service) Query(ctx context.Context, opts QueryOptions) ([]domain.ArtifactRecord, *Catalog, error) {
	var (
		cat *Catalog
		err error
	)
	if opts.Prefetch {
		cat, err = s.Prefetch(ctx)
	} else {
		cat, err = s.Load(ctx)
	}
	if err != nil {
		return nil, nil, err
	}
	return opts.Query.Apply(cat.Records), cat, nil
}
