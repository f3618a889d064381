package enquiry_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mithai/internal/enquiry"
	"github.com/noah-isme/backend-mithai/internal/ratelimit"
)

func newRouter(svc *enquiry.Service) http.Handler {
	h := &enquiry.Handler{Svc: svc}
	limit := ratelimit.Handler{Backend: ratelimit.NewMemory(), Scope: "enquiry", Window: 15 * time.Minute, Max: 5}
	r := chi.NewRouter()
	r.With(limit.Middleware).Post("/enquiries", h.Create)
	r.Get("/admin/enquiries", h.List)
	r.Get("/admin/enquiries/{id}", h.Get)
	r.Patch("/admin/enquiries/{id}", h.Update)
	r.Delete("/admin/enquiries/{id}", h.Delete)
	return r
}

func post(router http.Handler, ip string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(sample())
	req := httptest.NewRequest(http.MethodPost, "/enquiries", bytes.NewReader(body))
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateIsLimitedPerIP(t *testing.T) {
	svc, q, _ := newService()
	router := newRouter(svc)

	for i := 0; i < 5; i++ {
		rec := post(router, "198.51.100.7")
		require.Equal(t, http.StatusCreated, rec.Code, "attempt %d", i+1)
	}
	rec := post(router, "198.51.100.7")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = post(router, "198.51.100.8")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, q.rows, 6)
}

func TestAdminEnquiryHandlers(t *testing.T) {
	svc, _, _ := newService()
	router := newRouter(svc)

	rec := post(router, "198.51.100.7")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/enquiries", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/admin/enquiries/"+created.Data.ID, bytes.NewBufferString(`{"status":"completed"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/enquiries/"+created.Data.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/enquiries/"+created.Data.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
