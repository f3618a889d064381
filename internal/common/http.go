package common

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the socket peer address used for rate limiting. Forwarding
// headers are ignored here; a trusted-proxy middleware rewrites RemoteAddr
// before this runs when the service sits behind a load balancer.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(host)); err == nil {
		return addr.Unmap().String()
	}
	return strings.TrimSpace(host)
}

// DecodeJSON decodes a single JSON document into dst. Unknown fields and
// trailing data are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ValidationError("request body is required", nil)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ValidationError("request body is required", nil)
		}
		return &AppError{Code: "BAD_REQUEST", Message: "invalid JSON payload", HTTPStatus: http.StatusBadRequest, Err: err}
	}
	if dec.More() {
		return &AppError{Code: "BAD_REQUEST", Message: "request body must hold a single JSON object", HTTPStatus: http.StatusBadRequest}
	}
	return nil
}
