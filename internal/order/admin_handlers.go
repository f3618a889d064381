package order

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/pricing"
	"github.com/noah-isme/backend-mithai/internal/report"
)

const exportPageSize = 200

// AdminHandler provides administrative order management endpoints.
type AdminHandler struct {
	Svc *Service
}

// List handles GET /api/v1/admin/orders.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	params := adminFilter(r)
	params.Page = page
	params.Limit = perPage
	result, err := h.Svc.List(r.Context(), params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteList(w, result.Orders, result.Page, result.Limit, result.Total)
}

// Get handles GET /api/v1/admin/orders/{id}.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	viewer, _ := common.IdentityFrom(r.Context())
	viewer.Admin = true
	out, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// PatchStatus handles PATCH /api/v1/admin/orders/{id}/status.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req StatusUpdate
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Export handles GET /api/v1/admin/orders/export.xlsx with the same filters as List.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	params := adminFilter(r)
	params.Page = 1
	params.Limit = exportPageSize
	var orders, items [][]any
	for {
		page, err := h.Svc.List(r.Context(), params)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		for _, o := range page.Orders {
			orders = append(orders, []any{
				o.Number, o.CreatedAt, o.Email, o.ShippingAddress.Name, o.ShippingAddress.Phone,
				o.ShippingAddress.City, string(o.PaymentMethod), string(o.PaymentStatus), string(o.Status),
				pricing.Rupees(o.Subtotal), pricing.Rupees(o.Shipping), pricing.Rupees(o.Tax), pricing.Rupees(o.Total),
			})
			for _, it := range o.Items {
				items = append(items, []any{
					o.Number, it.Kind, it.Name, it.TierLabel, it.Quantity,
					pricing.Rupees(it.UnitPrice), pricing.Rupees(it.LineTotal),
				})
			}
		}
		if int64(params.Page*params.Limit) >= page.Total || len(page.Orders) == 0 {
			break
		}
		params.Page++
	}
	report.Serve(w, "orders.xlsx",
		report.Sheet{
			Name:    "Orders",
			Headers: []string{"Order", "Placed", "Email", "Customer", "Phone", "City", "Payment", "Payment Status", "Status", "Subtotal", "Shipping", "Tax", "Total"},
			Rows:    orders,
		},
		report.Sheet{
			Name:    "Items",
			Headers: []string{"Order", "Kind", "Item", "Tier", "Qty", "Unit Price", "Line Total"},
			Rows:    items,
		},
	)
}

func adminFilter(r *http.Request) ListParams {
	q := r.URL.Query()
	return ListParams{
		Status:        strings.TrimSpace(q.Get("status")),
		PaymentStatus: strings.TrimSpace(q.Get("paymentStatus")),
		PaymentMethod: strings.TrimSpace(q.Get("paymentMethod")),
		Query:         strings.TrimSpace(q.Get("q")),
	}
}

func (h *AdminHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return false
	}
	return true
}
