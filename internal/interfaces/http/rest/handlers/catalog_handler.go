package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"lpp-backend/internal/catalog"
	"lpp-backend/pkg/api"
)

// CatalogHandler exposes catalog maintenance endpoints.
type CatalogHandler struct {
	catalog CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: svc, logger: logger}
}

// RefreshResponse is the body of POST /catalog/refresh.
type RefreshResponse struct {
	Count  int            `json:"count"`
	Report catalog.Report `json:"report"`
	Skips  []SkippedItem  `json:"skips,omitempty"`
}

// SkippedItem describes one signature that produced no record.
type SkippedItem struct {
	Signature string `json:"signature"`
	Reason    string `json:"reason"`
	Error     string `json:"error,omitempty"`
}

// Refresh handles POST /catalog/refresh: it rebuilds the catalog from the
// ledger and replaces the cached one.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cat, err := h.catalog.Load(r.Context())
	if err != nil {
		buildPending(w, h.logger, err)
		return
	}

	resp := RefreshResponse{Count: cat.Len(), Report: cat.Report}
	for _, item := range cat.Report.SkippedItems() {
		skip := SkippedItem{Signature: item.Signature.String(), Reason: string(item.Reason)}
		if item.Err != nil {
			skip.Error = item.Err.Error()
		}
		resp.Skips = append(resp.Skips, skip)
	}

	h.logger.Info("Catalog refreshed", zap.Int("records", resp.Count), zap.Int("skipped", len(resp.Skips)))
	api.Success(w, http.StatusOK, resp)
}
