package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyReleasesKeyAfterRejection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	statuses := []int{http.StatusConflict, http.StatusUnprocessableEntity, http.StatusCreated}
	calls := 0
	h := Idem{R: client, TTL: time.Hour}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[calls])
		calls++
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.RemoteAddr = "198.51.100.7:40000"
		req.Header.Set("Idempotency-Key", "checkout-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusConflict, send())
	require.Equal(t, http.StatusUnprocessableEntity, send())
	require.Equal(t, http.StatusCreated, send())

	require.Equal(t, http.StatusConflict, send())
	require.Equal(t, 3, calls)
	require.Len(t, mr.Keys(), 1)
}
