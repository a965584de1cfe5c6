// Package handlers implements the archive's REST endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"lpp-backend/internal/catalog"
	"lpp-backend/internal/domain"
	"lpp-backend/internal/ledger"
	"lpp-backend/pkg/api"
	appErrors "lpp-backend/pkg/errors"
)

// maxBodyBytes bounds a publish request body.
const maxBodyBytes = 1 << 20

// CatalogService is what the handlers need from catalog.Service.
type CatalogService interface {
	Query(ctx context.Context, opts catalog.QueryOptions) ([]domain.ArtifactRecord, *catalog.Catalog, error)
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// buildPending answers a request that stopped waiting for a catalog build.
// The build keeps running and lands in the cache for the next request.
func buildPending(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Warn("Request ended before the catalog build finished", zap.Error(err))
	api.Error(w, http.StatusServiceUnavailable, "Catalog is still being built, retry shortly")
}

// RecordPublisher is what the handlers need from publisher.Publisher.
type RecordPublisher interface {
	Publish(ctx context.Context, m domain.Metadata, payer ledger.Keypair) (ledger.Signature, error)
}

// ArtifactHandler handles artifact-related HTTP requests
type ArtifactHandler struct {
	catalog   CatalogService
	publisher RecordPublisher
	payer     ledger.Keypair
	logger    *zap.Logger
}

// NewArtifactHandler creates a new artifact handler. A zero payer disables
// publishing.
func NewArtifactHandler(svc CatalogService, pub RecordPublisher, payer ledger.Keypair, logger *zap.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		catalog:   svc,
		publisher: pub,
		payer:     payer,
		logger:    logger,
	}
}

// ListArtifactsResponse is the body of GET /artifacts.
type ListArtifactsResponse struct {
	Records []domain.ArtifactRecord `json:"records"`
	Count   int                     `json:"count"`
	Report  catalog.Report          `json:"report"`
}

// ListArtifacts handles GET /artifacts. Query parameters: category (one of
// the categories or "All"), q (free-text search) and prefetch (default true:
// serve the cached catalog when there is one).
func (h *ArtifactHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	prefetch := true
	if raw := params.Get("prefetch"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "prefetch must be a boolean")
			return
		}
		prefetch = v
	}

	category := params.Get("category")
	if category != "" && category != domain.AllCategories && !domain.Category(category).IsKnown() {
		api.Error(w, http.StatusBadRequest, "unknown category "+strconv.Quote(category))
		return
	}

	records, cat, err := h.catalog.Query(r.Context(), catalog.QueryOptions{
		Query: domain.Query{
			Category: category,
			Search:   params.Get("q"),
		},
		Prefetch: prefetch,
	})
	if err != nil {
		buildPending(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, ListArtifactsResponse{
		Records: records,
		Count:   len(records),
		Report:  cat.Report,
	})
}

// PublishArtifactResponse is the body of a successful POST /artifacts.
type PublishArtifactResponse struct {
	Signature string `json:"signature"`
}

// PublishArtifact handles POST /artifacts. The body is the metadata to store.
func (h *ArtifactHandler) PublishArtifact(w http.ResponseWriter, r *http.Request) {
	if h.payer.IsZero() {
		api.Error(w, http.StatusServiceUnavailable, "Publishing is not configured")
		return
	}

	var m domain.Metadata
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&m); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sig, err := h.publisher.Publish(r.Context(), m, h.payer)
	if err != nil {
		if !appErrors.IsValidation(err) {
			h.logger.Error("Failed to publish artifact",
				zap.String("name", m.Name),
				zap.Error(err),
			)
		}
		api.FromError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, PublishArtifactResponse{Signature: sig.String()})
}
