package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations. Values are stored as JSON, so Get decodes
// into dest the same way for every backend.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// TryLock takes key for ttl. It returns the holder's token and false when
	// someone else holds the lock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	// Unlock releases key only while it is still held under token.
	Unlock(ctx context.Context, key, token string) error
}

// GetOrLoad returns the cached value for key, or calls load and stores its
// result for ttl. Cache failures never hide a successful load; errors from
// load are returned and nothing is cached. hit reports whether the value came
// from the cache.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (v T, hit bool, err error) {
	if c != nil {
		if err := c.Get(ctx, key, &v); err == nil {
			return v, true, nil
		}
	}
	v, err = load(ctx)
	if err != nil {
		return v, false, err
	}
	if c != nil && ttl > 0 {
		_ = c.Set(ctx, key, v, ttl)
	}
	return v, false, nil
}
