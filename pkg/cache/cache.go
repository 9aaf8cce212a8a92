package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values under string keys with a time to live.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	// Close stops background work and flushes any pending state.
	Close() error
}
