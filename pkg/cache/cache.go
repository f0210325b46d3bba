// Package cache provides a small key/value store abstraction with TTLs and a
// read-through helper. Values are stored JSON-encoded so every driver hands back
// an independent copy.
package cache

import (
	"context"
	"time"
)

// Store is implemented by the process-local and Redis drivers.
type Store interface {
	// Get decodes the value under key into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// GetOrLoad returns the cached value under key, or runs loader, caches its result
// for ttl and returns it. Loader errors are returned as is and nothing is cached.
// A failing store read is treated as a miss; a failing store write is ignored.
func GetOrLoad[T any](ctx context.Context, s Store, key string, ttl time.Duration, loader func(ctx context.Context) (T, error)) (T, error) {
	var v T
	if s != nil {
		if ok, err := s.Get(ctx, key, &v); err == nil && ok {
			return v, nil
		}
	}
	v, err := loader(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if s != nil {
		_ = s.Set(ctx, key, v, ttl)
	}
	return v, nil
}
