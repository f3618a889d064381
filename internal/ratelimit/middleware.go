package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/obs"
)

// Handler enforces a limit before delegating to the next handler. Backend
// failures let the request through and are logged.
type Handler struct {
	Backend Backend
	Scope   string
	Window  time.Duration
	Max     int
	// Key derives the bucket for a request. Defaults to the client IP.
	Key    func(*http.Request) string
	Logger zerolog.Logger
	Now    func() time.Time
}

// Middleware implements the chi middleware signature.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Backend == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := common.ClientIP(r)
		if h.Key != nil {
			key = h.Key(r)
		}
		d, err := h.Backend.Allow(r.Context(), h.Scope+":"+key, h.Window, h.Max)
		if err != nil {
			h.Logger.Warn().Err(err).Str("scope", h.Scope).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			now := time.Now()
			if h.Now != nil {
				now = h.Now()
			}
			retryAfter := int(d.ResetAt.Sub(now).Seconds() + 0.5)
			if retryAfter < 1 {
				retryAfter = 1
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			obs.Inc(obs.RateLimitedTotal, h.Scope)
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later", map[string]any{"retryAfterSeconds": retryAfter})
			return
		}
		next.ServeHTTP(w, r)
	})
}
