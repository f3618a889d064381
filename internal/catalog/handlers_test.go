package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/report"
)

type listResponse struct {
	Data       []catalog.Item `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalItems int `json:"total_items"`
	} `json:"pagination"`
}

func withParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCatalogHandlers(t *testing.T) {
	q := newFakeCatalogQueries(t)
	q.seed("product", "Kaju Katli", "kaju-katli", 0, kajuTiers, true)
	q.seed("namkeen", "Aloo Bhujia", "aloo-bhujia", 0, `[{"quantity":400,"unit":"gm","price":12000}]`, true)
	q.seed("box", "Bhaji Box", "bhaji-box", 49900, `[]`, true)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, q, nil)})

	t.Run("list paginates", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog?limit=2", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "3", rec.Header().Get("X-Total-Count"))

		var resp listResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		require.Equal(t, 2, resp.Pagination.PerPage)
		require.Equal(t, 3, resp.Pagination.TotalItems)
	})

	t.Run("kind route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ListKind(catalog.KindBox)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/boxes", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp listResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, catalog.KindBox, resp.Data[0].Kind)
		require.Empty(t, resp.Data[0].Tiers)
	})

	t.Run("bad kind", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog?kind=hamper", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("detail by slug", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Detail(rec, withParam(httptest.NewRequest(http.MethodGet, "/api/v1/catalog/kaju-katli", nil), "idOrSlug", "kaju-katli"))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data catalog.Item `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Tiers, 2)
	})

	t.Run("detail missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Detail(rec, withParam(httptest.NewRequest(http.MethodGet, "/api/v1/catalog/nope", nil), "idOrSlug", "nope"))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), `"NOT_FOUND"`)
	})

	t.Run("admin create rejects unknown fields", func(t *testing.T) {
		body := strings.NewReader(`{"kind":"box","name":"Box","price":100,"stock":4}`)
		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog", body))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin create", func(t *testing.T) {
		body := strings.NewReader(`{"kind":"namkeen","name":"Khatta Meetha","tiers":[{"quantity":200,"unit":"gm","price":8000}]}`)
		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog", body))
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Contains(t, rec.Body.String(), `"slug":"khatta-meetha"`)
	})

	t.Run("export", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Export(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/catalog/export.xlsx", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))

		file, err := xlsx.OpenBinary(rec.Body.Bytes())
		require.NoError(t, err)
		require.Len(t, file.Sheets[0].Rows, 5)
	})
}
