package handlers

import (
	"net/http"

	"github.com/eventra/eventra-api/internal/repository"
	"github.com/rs/zerolog"
)

// CatalogHandler serves the read-only plan and template reference data.
type CatalogHandler struct {
	catalog repository.CatalogRepository
	logger  zerolog.Logger
}

func NewCatalogHandler(catalog repository.CatalogRepository, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

func (h *CatalogHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.catalog.ListPlans(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *CatalogHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.catalog.ListTemplates(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}
