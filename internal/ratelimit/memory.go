package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const memorySweepEvery = 1024

// Memory is a per-process token bucket backend for single-replica deployments
// and tests. A bucket refills max tokens per window.
type Memory struct {
	Now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	window   time.Duration
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{buckets: map[string]*bucket{}}
}

// Allow implements Backend.
func (m *Memory) Allow(_ context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	if max <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: max, Remaining: max, ResetAt: now.Add(window)}, nil
	}
	every := rate.Every(window / time.Duration(max))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls%memorySweepEvery == 0 {
		m.sweep(now)
	}
	b, ok := m.buckets[key]
	if !ok || b.limiter.Limit() != every || b.limiter.Burst() != max {
		b = &bucket{limiter: rate.NewLimiter(every, max), window: window}
		m.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	d := Decision{Allowed: allowed, Limit: max, Remaining: int(tokens)}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if tokens >= 1 {
		d.ResetAt = now
	} else {
		d.ResetAt = now.Add(time.Duration((1 - tokens) * float64(window/time.Duration(max))))
	}
	return d, nil
}

func (m *Memory) sweep(now time.Time) {
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) > b.window {
			delete(m.buckets, key)
		}
	}
}
