package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/common"
)

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := common.IdentityFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("X-User", id.UserID)
		if id.Admin {
			w.Header().Set("X-Admin", "1")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func newTestMiddleware(t *testing.T) (Middleware, *Verifier) {
	t.Helper()
	v := newTestVerifier(t, time.Now())
	hash, err := HashKey("s3cret-admin-key")
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}
	return Middleware{Verifier: v, APIKeys: NewAPIKeys(hash), QueryParam: "token", Logger: zerolog.Nop()}, v
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateIsOptional(t *testing.T) {
	m, v := newTestMiddleware(t)
	h := m.Authenticate(echoIdentity())

	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("anonymous request: got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	if rec := serve(h, req); rec.Code != http.StatusNoContent {
		t.Fatalf("invalid token should be ignored: got %d", rec.Code)
	}

	token, _ := v.Issue(common.Identity{UserID: "user_1"}, time.Minute)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(h, req)
	if rec.Code != http.StatusOK || rec.Header().Get("X-User") != "user_1" {
		t.Fatalf("expected identity, got %d %q", rec.Code, rec.Header().Get("X-User"))
	}
}

func TestRequireAuth(t *testing.T) {
	m, v := newTestMiddleware(t)
	h := m.RequireAuth(echoIdentity())

	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d", rec.Code)
	}

	token, _ := v.Issue(common.Identity{UserID: "user_1"}, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	if rec := serve(h, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("query token outside websocket upgrade: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if rec := serve(h, req); rec.Code != http.StatusOK {
		t.Fatalf("query token on websocket upgrade: got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	m, v := newTestMiddleware(t)
	h := m.Authenticate(m.RequireAdmin(echoIdentity()))

	customer, _ := v.Issue(common.Identity{UserID: "user_1"}, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	if rec := serve(h, req); rec.Code != http.StatusForbidden {
		t.Fatalf("customer token: got %d", rec.Code)
	}

	admin, _ := v.Issue(common.Identity{UserID: "staff", Admin: true}, time.Minute)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	if rec := serve(h, req); rec.Code != http.StatusOK || rec.Header().Get("X-Admin") != "1" {
		t.Fatalf("admin token: got %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", "s3cret-admin-key")
		rec := serve(h, req)
		if rec.Code != http.StatusOK || rec.Header().Get("X-User") != APIKeyUser {
			t.Fatalf("api key attempt %d: got %d", i+1, rec.Code)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "guess")
	if rec := serve(h, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong api key: got %d", rec.Code)
	}
}

func TestAPIKeysDisabledWithoutHash(t *testing.T) {
	keys := NewAPIKeys("")
	if keys.Enabled() {
		t.Fatal("expected disabled")
	}
	if ok, err := keys.Verify("anything"); ok || err != nil {
		t.Fatalf("unexpected result %v %v", ok, err)
	}
}
