package sawamani

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mithai/internal/common"
)

// Handler exposes the public form endpoints and the admin list.
type Handler struct {
	Svc *Service
}

type previewRequest struct {
	ItemID  string   `json:"itemId"`
	Weights []Weight `json:"weights"`
}

// Packings handles GET /api/v1/sawamani/packings.
func (h *Handler) Packings(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"packings": h.Svc.Packings(),
		"maxGrams": h.Svc.Allocator.MaxGrams,
	})
}

// Preview handles POST /api/v1/sawamani/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req previewRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Preview(r.Context(), req.Weights, req.ItemID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Create handles POST /api/v1/sawamani. The route is rate limited per client IP.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, out)
}

// List handles GET /api/v1/admin/sawamani.
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

// Get handles GET /api/v1/admin/sawamani/{id}.
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

// Update handles PATCH /api/v1/admin/sawamani/{id}.
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

// Delete handles DELETE /api/v1/admin/sawamani/{id}.
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
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sawamani service not configured", nil)
		return false
	}
	return true
}
