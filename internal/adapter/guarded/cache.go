// Package guarded wraps a remote cache tier with a circuit breaker so a
// cache-store outage degrades reads to misses instead of failing them.
package guarded

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bblanco3/erp-backend/internal/port/cache"
	"github.com/bblanco3/erp-backend/internal/resilience"
)

// Cache decorates an inner cache with a resilience.Breaker.
type Cache struct {
	inner   cache.Cache
	breaker *resilience.Breaker
	log     *slog.Logger
}

// New creates a guarded cache around inner.
func New(inner cache.Cache, breaker *resilience.Breaker, log *slog.Logger) *Cache {
	return &Cache{inner: inner, breaker: breaker, log: log}
}

// Get returns a miss when the breaker is open; reads must not fail
// because the remote tier is down.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	execErr := c.breaker.Execute(func() error {
		var innerErr error
		data, ok, innerErr = c.inner.Get(ctx, key)
		return innerErr
	})
	if execErr != nil {
		if !errors.Is(execErr, resilience.ErrCircuitOpen) {
			c.log.Warn("remote cache get failed", "key", key, "error", execErr)
		}
		return nil, false, nil
	}
	return data, ok, nil
}

// Set drops the write when the breaker is open. A missing cache entry is
// recomputed on the next read, so this is safe to shed.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	execErr := c.breaker.Execute(func() error {
		return c.inner.Set(ctx, key, value, ttl)
	})
	if execErr != nil && !errors.Is(execErr, resilience.ErrCircuitOpen) {
		c.log.Warn("remote cache set failed", "key", key, "error", execErr)
	}
	return nil
}

// Delete propagates failures: invalidation callers need to know a stale
// entry may have survived.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.breaker.Execute(func() error {
		return c.inner.Delete(ctx, key)
	})
}
