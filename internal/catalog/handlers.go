package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/pricing"
	"github.com/noah-isme/backend-mithai/internal/report"
)

// Handler exposes public and admin catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// List handles GET /api/v1/catalog.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "", false)
}

// ListKind returns a handler listing a single kind, used for /products, /namkeens and /boxes.
func (h *Handler) ListKind(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, kind, false)
	}
}

// Detail handles GET /api/v1/catalog/{idOrSlug}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, item)
}

// AdminList handles GET /api/v1/admin/catalog, including inactive items.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "", true)
}

// AdminGet handles GET /api/v1/admin/catalog/{id}.
func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	item, err := h.service.AdminGet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, item)
}

// Create handles POST /api/v1/admin/catalog.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in ItemInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, item)
}

// Update handles PUT /api/v1/admin/catalog/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in ItemInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/admin/catalog/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/v1/admin/catalog/export.xlsx.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	params.IncludeInactive = true
	params.Page = 1
	params.Limit = h.service.maxLimit
	var rows [][]any
	for {
		page, err := h.service.List(r.Context(), params)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		for _, it := range page.Items {
			rows = append(rows, exportRow(it))
		}
		if int64(params.Page*params.Limit) >= page.Total || len(page.Items) == 0 {
			break
		}
		params.Page++
	}
	report.Serve(w, "catalog.xlsx", report.Sheet{
		Name:    "Catalog",
		Headers: []string{"ID", "Kind", "Name", "Slug", "Category", "Price", "Tiers", "Contents", "Active", "Featured", "Created", "Updated"},
		Rows:    rows,
	})
}

func exportRow(it Item) []any {
	tiers := make([]string, 0, len(it.Tiers))
	for _, t := range it.Tiers {
		tiers = append(tiers, t.Ref().Label()+" "+pricing.FormatINR(t.Price))
	}
	price := ""
	if it.Price > 0 {
		price = pricing.Rupees(it.Price)
	}
	return []any{
		it.ID, string(it.Kind), it.Name, it.Slug, it.Category, price,
		strings.Join(tiers, "; "), strings.Join(it.Contents, ", "),
		it.IsActive, it.IsFeatured, it.CreatedAt, it.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, kind Kind, admin bool) {
	if !h.ready(w) {
		return
	}
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if kind != "" {
		params.Kind = kind
	}
	params.IncludeInactive = admin
	result, err := h.service.List(r.Context(), params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteList(w, result.Items, result.Page, result.Limit, result.Total)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return false
	}
	return true
}
