package cache

import (
	"context"
	"time"
)

// NoExpiry marks an entry that lives until it is deleted or overwritten.
// Credential entries use it; session entries always carry a TTL.
const NoExpiry time.Duration = 0

// Cache defines the primitive operations for a key-value cache.
// T is the type of value stored in the cache (e.g. string or a struct).
type Cache[T any] interface {
	// Get retrieves a single value from cache.
	// Returns ErrCacheMiss if the key does not exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores a single value in cache. A ttl of NoExpiry stores the
	// value without expiration.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes a key from cache. Removing an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection
	Close() error

	// Health checks if the cache is healthy
	Health(ctx context.Context) error
}

// GetWithFetch is a generic cache-aside helper. On cache miss it calls
// fetchFunc, stores the result under key, and returns it. The Set is
// best-effort: a failed write degrades to a fetch on the next read.
func GetWithFetch[T any](
	ctx context.Context,
	c Cache[T],
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fetchFunc(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}

	_ = c.Set(ctx, key, value, ttl)
	return value, nil
}
