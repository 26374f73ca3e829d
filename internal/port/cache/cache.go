// Package cache defines the key-value port the read-model store caches
// through. Implementations: ristretto (in-process), natskv (shared),
// tiered (both), guarded (circuit breaker wrapper).
package cache

import (
	"context"
	"time"
)

// Cache stores serialized read-model snapshots. Get reports ok=false
// for a missing key rather than an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
