package cache

import (
	"context"
	"time"
)

// Counter defines the interface for windowed counter operations
type Counter interface {
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Close() error
}
