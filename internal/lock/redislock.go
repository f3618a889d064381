// Package lock serialises work across API replicas with short-lived Redis keys.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the key stays held for longer than the wait budget.
var ErrNotAcquired = errors.New("lock: not acquired")

const keyPrefix = "lock:"

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker provides a Redis-backed mutual exclusion lock.
type Locker struct {
	R            redis.UniversalClient
	RetryBackoff time.Duration
	// Wait bounds how long WithLock polls for a held key. Zero waits up to the lock TTL.
	Wait time.Duration
}

// WithLock runs fn while holding key. The key expires after ttl even if the
// holder dies, and it is released as soon as fn returns.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	token, err := l.acquire(ctx, keyPrefix+key, ttl)
	if err != nil {
		return err
	}
	defer l.release(keyPrefix+key, token)
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	wait := l.Wait
	if wait <= 0 {
		wait = ttl
	}
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return "", ErrNotAcquired
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// release deletes key only while it still carries token.
func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.R, []string{key}, token).Err()
}
