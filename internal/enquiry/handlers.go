package enquiry

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mithai/internal/common"
)

// Handler exposes the public form and the admin inbox.
type Handler struct {
	Svc *Service
}

// Create handles POST /api/v1/enquiries. The route is rate limited per client IP.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Create(r.Context(), in, common.ClientIP(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, map[string]any{
		"id":      out.ID,
		"status":  out.Status,
		"message": "Thank you, we will get back to you shortly.",
	})
}

// List handles GET /api/v1/admin/enquiries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	q := r.URL.Query()
	items, total, err := h.Svc.List(r.Context(), ListParams{
		Status: strings.TrimSpace(q.Get("status")),
		Query:  strings.TrimSpace(q.Get("q")),
		Page:   page,
		Limit:  perPage,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteList(w, items, page, perPage, total)
}

// Get handles GET /api/v1/admin/enquiries/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	out, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Update handles PATCH /api/v1/admin/enquiries/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var change Update
	if err := common.DecodeJSON(r, &change); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), change)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Delete handles DELETE /api/v1/admin/enquiries/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "enquiry service not configured", nil)
		return false
	}
	return true
}
