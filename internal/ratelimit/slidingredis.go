package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingRedis implements a sliding window limiter backed by Redis sorted sets.
// Rejected attempts are not recorded, so a throttled client regains capacity
// as soon as its oldest accepted event leaves the window.
type SlidingRedis struct {
	Client redis.UniversalClient
	Prefix string
	Now    func() time.Time
}

// Allow implements Backend.
func (l *SlidingRedis) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: max, Remaining: max, ResetAt: now.Add(window)}, nil
	}

	redisKey := l.Prefix + key
	member := uuid.NewString()
	cutoff := now.Add(-window).UnixMilli()

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("(%d", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	current := int(countCmd.Val())
	d := Decision{Limit: max, Allowed: current <= max, ResetAt: now.Add(window)}
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		d.ResetAt = time.UnixMilli(int64(oldest[0].Score)).Add(window)
	}
	if !d.Allowed {
		if err := l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return Decision{}, err
		}
		current = max
	}
	d.Remaining = max - current
	return d, nil
}
