package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartHandler handles cart HTTP requests. Every route expects the cart owner
// to have been placed in the request context by the session binder.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.GetCart(r.Context(), owner)
	h.respond(w, r, snapshot, err)
}

// Add handles POST /api/cart requests.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req model.AddLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	snapshot, err := h.service.AddLine(r.Context(), owner, &req)
	h.respond(w, r, snapshot, err)
}

// UpdateQuantity handles PATCH /api/cart/{lineId} requests.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}

	var req model.UpdateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	if req.Quantity == nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "quantity is required", h.logger)
		return
	}

	snapshot, err := h.service.UpdateQuantity(r.Context(), owner, lineID, *req.Quantity)
	h.respond(w, r, snapshot, err)
}

// Remove handles DELETE /api/cart/{lineId} requests.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.RemoveLine(r.Context(), owner, lineID)
	h.respond(w, r, snapshot, err)
}

// Clear handles DELETE /api/cart requests.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.ClearCart(r.Context(), owner)
	h.respond(w, r, snapshot, err)
}

func (h *CartHandler) owner(w http.ResponseWriter, r *http.Request) (model.Owner, bool) {
	owner, err := session.OwnerFromContext(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return model.Owner{}, false
	}
	return owner, true
}

// lineID parses the {lineId} path parameter. A malformed id cannot name a
// line, so it is reported as not found.
func (h *CartHandler) lineID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "lineId")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeLineNotFound, "cart line not found", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, snapshot *model.CartSnapshot, err error) {
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
