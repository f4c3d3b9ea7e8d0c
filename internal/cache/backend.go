package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a Backend when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Backend is the key/value store under a RangeCache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Keys lists the live keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
