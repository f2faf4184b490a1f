// Package cache provides the caching layer used for return statistics and
// async job state. Three implementations share one interface: an in-process
// LRU, a Redis client, and a layered combination of the two.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the cache contract. Get fills dest, which must be a *string or
// *interface{}; structured values are stored as JSON strings so that every
// implementation round-trips them identically.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}
