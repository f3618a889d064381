package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mithai/internal/common"
)

// Handler exposes customer order endpoints. Every route requires an authenticated caller.
type Handler struct {
	Svc *Service
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in CheckoutInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Checkout(r.Context(), Customer{UserID: id.UserID, Email: id.Email}, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, out)
}

// List handles GET /api/v1/orders, scoped to the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	q := r.URL.Query()
	result, err := h.Svc.List(r.Context(), ListParams{
		UserID: id.UserID,
		Status: q.Get("status"),
		Page:   page,
		Limit:  perPage,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteList(w, result.Orders, result.Page, result.Limit, result.Total)
}

// Get handles GET /api/v1/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Cancel handles POST /api/v1/orders/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (common.Identity, bool) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return common.Identity{}, false
	}
	id, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return common.Identity{}, false
	}
	return id, true
}
