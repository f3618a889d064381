// Package ratelimit throttles public form submissions per client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Backend counts events per key within a window.
type Backend interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error)
}

// NewBackend builds the backend named by RATE_LIMIT_BACKEND.
func NewBackend(name string, client *redis.Client) (Backend, error) {
	switch name {
	case "", "redis":
		if client == nil {
			return nil, fmt.Errorf("ratelimit: redis backend needs a client")
		}
		return &SlidingRedis{Client: client, Prefix: "ratelimit:"}, nil
	case "ulule":
		if client == nil {
			return nil, fmt.Errorf("ratelimit: ulule backend needs a client")
		}
		store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "ratelimit_ulule"})
		if err != nil {
			return nil, fmt.Errorf("ratelimit: ulule store: %w", err)
		}
		return NewUlule(store), nil
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("ratelimit: unknown backend %q", name)
}
