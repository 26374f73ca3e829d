// Package readmodel serves query results through a tenant-partitioned
// cache. Keys are derived from the tenant, the query family, and a
// digest of the query parameters. Every key handed to the cache is
// recorded in a per-tenant index, so invalidation deletes exactly the
// keys that were issued for that tenant and nothing else.
package readmodel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bblanco3/erp-backend/internal/port/cache"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// Store is the shared read-model cache front.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger

	// Metric hooks, optional.
	OnHit  func(ctx context.Context, family string)
	OnMiss func(ctx context.Context, family string)

	mu   sync.Mutex
	keys map[string]map[string]struct{} // tenant ID -> issued cache keys
}

// New creates a Store serving entries with the given TTL.
func New(c cache.Cache, ttl time.Duration, log *slog.Logger) *Store {
	return &Store{
		cache: c,
		ttl:   ttl,
		log:   log,
		keys:  make(map[string]map[string]struct{}),
	}
}

// Key derives the deterministic cache key for a query. The parameter
// digest keeps distinct filters from colliding; the tenant segment keeps
// tenants from ever sharing an entry.
func Key(tenantID, family string, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("serialize query params for %s: %w", family, err)
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("rm.%s.%s.%s", tenantID, family, hex.EncodeToString(sum[:])), nil
}

// track records an issued key in the tenant's index.
func (s *Store) track(tenantID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.keys[tenantID]
	if !ok {
		set = make(map[string]struct{})
		s.keys[tenantID] = set
	}
	set[key] = struct{}{}
}

// Invalidate deletes every cache entry issued for the tenant. Keys whose
// delete fails stay in the index so a later invalidation retries them;
// the error is returned for logging but entries for other tenants are
// never touched.
func (s *Store) Invalidate(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	set := s.keys[tenantID]
	delete(s.keys, tenantID)
	s.mu.Unlock()

	var failed []string
	var firstErr error
	for key := range set {
		if err := s.cache.Delete(ctx, key); err != nil {
			failed = append(failed, key)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if len(failed) > 0 {
		s.mu.Lock()
		retry, ok := s.keys[tenantID]
		if !ok {
			retry = make(map[string]struct{})
			s.keys[tenantID] = retry
		}
		for _, key := range failed {
			retry[key] = struct{}{}
		}
		s.mu.Unlock()
		return fmt.Errorf("invalidate tenant %s: %d of %d keys failed: %w",
			tenantID, len(failed), len(set), firstErr)
	}
	return nil
}

// TrackedKeys reports how many live keys the index holds for a tenant.
func (s *Store) TrackedKeys(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys[tenantID])
}

// Fetch returns the cached result for a query, computing and storing it
// on a miss. The tenant comes from the request context; a corrupt cache
// entry is treated as a miss and recomputed.
func Fetch[T any](ctx context.Context, s *Store, family string, params any, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	t, err := tenantdb.TenantFromContext(ctx)
	if err != nil {
		return zero, err
	}

	key, err := Key(t.ID, family, params)
	if err != nil {
		return zero, err
	}

	if raw, ok, getErr := s.cache.Get(ctx, key); getErr == nil && ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			if s.OnHit != nil {
				s.OnHit(ctx, family)
			}
			return out, nil
		}
		s.log.Warn("discarding corrupt cache entry", "key", key)
	} else if getErr != nil {
		s.log.Warn("cache read failed, computing directly", "key", key, "error", getErr)
	}

	if s.OnMiss != nil {
		s.OnMiss(ctx, family)
	}

	out, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return zero, fmt.Errorf("serialize read model %s: %w", family, err)
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		// The caller still gets a correct result on a failed populate.
		s.log.Warn("cache populate failed", "key", key, "error", err)
		return out, nil
	}
	s.track(t.ID, key)
	return out, nil
}
