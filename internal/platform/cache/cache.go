// Package cache provides a small byte-oriented cache abstraction with a
// Redis-backed implementation. Consumers treat the cache as optional: a miss
// or an unavailable backend always falls back to recomputation.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Store is a minimal get/set/delete cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
