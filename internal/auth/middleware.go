package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Verifier *Verifier
	APIKeys  *APIKeys
	// QueryParam names the query parameter checked for a token on websocket
	// upgrades, where browsers cannot set headers.
	QueryParam string
	Logger     zerolog.Logger
}

// Authenticate attaches the caller to the request context when valid
// credentials are present. Invalid credentials are ignored here and rejected
// by RequireAuth or RequireAdmin.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.identify(r)
		if err != nil {
			if !errors.Is(err, errNoToken) {
				m.Logger.Debug().Err(err).Msg("ignoring invalid credentials")
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithIdentity(r.Context(), id)))
	})
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.caller(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin lets through admin tokens and valid API keys.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.caller(w, r)
		if !ok {
			return
		}
		if !id.Admin {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithIdentity(r.Context(), id)))
	})
}

func (m Middleware) caller(w http.ResponseWriter, r *http.Request) (common.Identity, bool) {
	if id, ok := common.IdentityFrom(r.Context()); ok {
		return id, true
	}
	id, err := m.identify(r)
	if err == nil {
		return id, true
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return common.Identity{}, false
	}
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
	return common.Identity{}, false
}

func (m Middleware) identify(r *http.Request) (common.Identity, error) {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" && m.APIKeys.Enabled() {
		ok, err := m.APIKeys.Verify(key)
		if err != nil {
			m.Logger.Warn().Err(err).Msg("api key hash check failed")
		}
		if !ok {
			return common.Identity{}, unauthorized("invalid api key", err)
		}
		return common.Identity{UserID: APIKeyUser, Admin: true}, nil
	}
	if m.Verifier == nil {
		return common.Identity{}, errNoToken
	}
	token := m.extractToken(r)
	if token == "" {
		return common.Identity{}, errNoToken
	}
	return m.Verifier.Verify(token)
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.QueryParam != "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get(m.QueryParam))
	}
	return ""
}
