package ports

import (
	"context"
	"time"
)

// Cache holds the oracle sync cursor and the per-property in-flight markers.
// A positive ttl makes the key expire; expired keys read as not found. A zero
// ttl keeps the key until it is deleted.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
