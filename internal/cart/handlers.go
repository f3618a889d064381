package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// Handler wires cart services to HTTP. Every route acts on the caller's cart.
type Handler struct {
	Svc *Service
}

// Get returns cart contents and the totals preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.View(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

// AddItem adds a product or merges its quantity into the existing line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProductID string           `json:"productId"`
		Quantity  int              `json:"quantity"`
		Tier      *pricing.TierRef `json:"tier"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if payload.ProductID == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "productId is required", map[string]any{"field": "productId"})
		return
	}
	if err := h.Svc.Add(r.Context(), userID, payload.ProductID, payload.Quantity, payload.Tier); err != nil {
		common.WriteError(w, err)
		return
	}
	h.Get(w, r)
}

// UpdateItem sets the quantity of a line; zero removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Quantity *int `json:"quantity"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if payload.Quantity == nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity is required", map[string]any{"field": "quantity"})
		return
	}
	if err := h.Svc.Update(r.Context(), userID, chi.URLParam(r, "productId"), *payload.Quantity); err != nil {
		common.WriteError(w, err)
		return
	}
	h.Get(w, r)
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Remove(r.Context(), userID, chi.URLParam(r, "productId")); err != nil {
		common.WriteError(w, err)
		return
	}
	h.Get(w, r)
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Clear(r.Context(), userID); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return userID, true
}
