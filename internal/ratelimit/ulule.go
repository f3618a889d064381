package ratelimit

import (
	"context"
	"sync"
	"time"

	limiter "github.com/ulule/limiter/v3"
)

// Ulule adapts a ulule/limiter store to Backend. One limiter is kept per rate.
type Ulule struct {
	store limiter.Store

	mu       sync.Mutex
	limiters map[limiter.Rate]*limiter.Limiter
}

// NewUlule wraps store.
func NewUlule(store limiter.Store) *Ulule {
	return &Ulule{store: store, limiters: map[limiter.Rate]*limiter.Limiter{}}
}

// Allow implements Backend.
func (u *Ulule) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	if max <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: max, Remaining: max, ResetAt: time.Now().Add(window)}, nil
	}
	res, err := u.limiter(window, max).Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		ResetAt:   time.Unix(res.Reset, 0),
	}, nil
}

func (u *Ulule) limiter(window time.Duration, max int) *limiter.Limiter {
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.limiters[rate]
	if !ok {
		l = limiter.New(u.store, rate)
		u.limiters[rate] = l
	}
	return l
}
