package handler

import (
	"context"
	"net/http"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// CatalogImporter loads catalogue files into the product store.
type CatalogImporter interface {
	Import(ctx context.Context, paths []string) (int, error)
}

// CatalogHandler handles catalogue administration requests.
type CatalogHandler struct {
	importer     CatalogImporter
	defaultFiles []string
	logger       zerolog.Logger
}

// NewCatalogHandler creates a new catalogue handler. defaultFiles are imported
// when a request does not name any.
func NewCatalogHandler(importer CatalogImporter, defaultFiles []string, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		importer:     importer,
		defaultFiles: defaultFiles,
		logger:       logger.With().Str("handler", "catalog").Logger(),
	}
}

type importRequest struct {
	Files []string `json:"files"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// Import handles POST /api/admin/catalog/import requests.
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeDomainError(w, r, err, h.logger)
			return
		}
	}

	files := req.Files
	if len(files) == 0 {
		files = h.defaultFiles
	}
	if len(files) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "no catalogue files to import", h.logger)
		return
	}

	n, err := h.importer.Import(r.Context(), files)
	if err != nil {
		h.logger.Error().Err(err).Strs("files", files).Msg("catalogue import failed")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "catalogue import failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{Imported: n})
}
