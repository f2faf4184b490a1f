package cache

import (
	"context"
	"time"
)

// promoted entries carry a short TTL because the origin TTL is not
// recoverable from Redis without a second round trip.
const promoteTTL = time.Minute

// LayeredCache fronts Redis with the in-process LRU. Writes go through to
// Redis first so the durable layer is never behind the front.
type LayeredCache struct {
	front *MemoryCache
	back  *RedisCache
}

// NewLayeredCache creates a layered cache over an existing Redis connection.
func NewLayeredCache(back *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		front: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		back:  back,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := lc.back.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = lc.front.Set(ctx, key, value, ttl)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.front.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.back.Get(ctx, key, dest); err != nil {
		return err
	}
	if s, ok := dest.(*string); ok {
		_ = lc.front.Set(ctx, key, *s, promoteTTL)
	}
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.front.Delete(ctx, keys...)
	return lc.back.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, key string) (bool, error) {
	if ok, err := lc.front.Exists(ctx, key); err == nil && ok {
		return true, nil
	}
	return lc.back.Exists(ctx, key)
}

// Close shuts down the front layer only. The Redis connection is shared and
// owned by the caller.
func (lc *LayeredCache) Close() error {
	return lc.front.Close()
}
