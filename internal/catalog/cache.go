package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cachePrefix   = "catalog:"
	generationKey = cachePrefix + "gen"
)

// Cache stores public catalog reads in Redis. Keys embed a generation
// number, so admin writes invalidate everything with a single INCR and stale
// entries simply age out. A nil *Cache is a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns nil when client is nil, which disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// key resolves a logical key such as "detail:kaju-katli" against the current
// generation.
func (c *Cache) key(ctx context.Context, name string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return cachePrefix + "v" + strconv.FormatInt(gen, 10) + ":" + name, nil
}

// GetJSON decodes the entry for name into dst and reports whether it existed.
func (c *Cache) GetJSON(ctx context.Context, name string, dst any) (bool, error) {
	if !c.enabled() || name == "" {
		return false, nil
	}
	key, err := c.key(ctx, name)
	if err != nil {
		return false, err
	}
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, json.Unmarshal(data, dst)
}

// SetJSON stores v under name for the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, name string, v any) error {
	if !c.enabled() || name == "" {
		return nil
	}
	key, err := c.key(ctx, name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate retires every cached entry by bumping the generation.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}
