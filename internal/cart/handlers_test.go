package cart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mithai/internal/cart"
	"github.com/noah-isme/backend-mithai/internal/common"
)

func authed(req *http.Request, user string) *http.Request {
	return req.WithContext(common.WithUserID(req.Context(), user))
}

func withProduct(req *http.Request, id string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCartHandlers(t *testing.T) {
	f := newFixture(t)
	h := &cart.Handler{Svc: f.svc}

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("add returns priced view", func(t *testing.T) {
		body := strings.NewReader(`{"productId":"` + f.box + `","quantity":2}`)
		rec := httptest.NewRecorder()
		h.AddItem(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body), "u1"))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data cart.View `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Items, 1)
		require.EqualValues(t, 99800, resp.Data.Totals.Subtotal)
		require.EqualValues(t, 5900, resp.Data.Totals.Shipping)
	})

	t.Run("add with zero quantity", func(t *testing.T) {
		body := strings.NewReader(`{"productId":"` + f.box + `","quantity":0}`)
		rec := httptest.NewRecorder()
		h.AddItem(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body), "u1"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update to zero", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/"+f.box, strings.NewReader(`{"quantity":0}`))
		rec := httptest.NewRecorder()
		h.UpdateItem(rec, authed(withProduct(req, f.box), "u1"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"items":[]`)
	})

	t.Run("update absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/"+f.kaju, strings.NewReader(`{"quantity":3}`))
		rec := httptest.NewRecorder()
		h.UpdateItem(rec, authed(withProduct(req, f.kaju), "u1"))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Clear(rec, authed(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil), "u1"))
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}
