package media

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-mithai/internal/common"
)

// multipartOverhead leaves room for form boundaries and fields around the file.
const multipartOverhead = 64 << 10

// Handler exposes the admin upload endpoint.
type Handler struct {
	Uploader *Uploader
}

// Upload handles POST /api/v1/admin/media with a multipart "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Uploader == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "media uploader not configured", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.Uploader.maxBytes()+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "file too large", nil)
			return
		}
		common.WriteError(w, common.ValidationError("multipart field \"file\" is required", map[string]any{"field": "file"}))
		return
	}
	defer file.Close()

	asset, err := h.Uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, asset)
}
