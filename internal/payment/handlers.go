package payment

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-mithai/internal/common"
)

// Handler exposes the UPI payment screen endpoints.
type Handler struct {
	Svc *Service
}

// UPI handles GET /api/v1/orders/{id}/upi.
func (h *Handler) UPI(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.caller(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.UPI(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// QRCode handles GET /api/v1/orders/{id}/upi.png.
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.caller(w, r)
	if !ok {
		return
	}
	png, err := h.Svc.QRCode(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (common.Identity, bool) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment service not configured", nil)
		return common.Identity{}, false
	}
	id, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return common.Identity{}, false
	}
	return id, true
}
