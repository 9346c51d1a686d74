package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key or hash field is not cached
var ErrMiss = errors.New("cache miss")

// Cache stores JSON values in per-key hashes. Deleting a key drops every
// field under it, which is how a user's reports are invalidated at once.
type Cache interface {
	// HGetJSON decodes the cached field into dest, or returns ErrMiss
	HGetJSON(ctx context.Context, key, field string, dest any) error
	// HSetJSON stores value under key/field and (re)sets the key's TTL
	HSetJSON(ctx context.Context, key, field string, value any, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	// Counter returns the value of a counter key, 0 when it was never incremented
	Counter(ctx context.Context, key string) (int64, error)
	// Incr adds one to a counter key and returns the new value
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}
