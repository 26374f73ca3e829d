package readmodel

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/tenant"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// memCache is a simple in-memory cache for testing.
type memCache struct {
	data      map[string][]byte
	failKeys  map[string]bool // Delete fails for these keys
	deletions []string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), failKeys: make(map[string]bool)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	if m.failKeys[key] {
		return errors.New("delete failed")
	}
	m.deletions = append(m.deletions, key)
	delete(m.data, key)
	return nil
}

func tenantCtx(id string) context.Context {
	return tenantdb.WithTenant(context.Background(),
		&tenant.Tenant{ID: id, Slug: id, Schema: "tenant_" + id, Active: true})
}

func newStore(c *memCache) *Store {
	return New(c, time.Hour, slog.New(slog.DiscardHandler))
}

type projectRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestFetchComputesOnMissThenServesFromCache(t *testing.T) {
	c := newMemCache()
	s := newStore(c)
	ctx := tenantCtx("t1")

	computes := 0
	compute := func(context.Context) ([]projectRow, error) {
		computes++
		return []projectRow{{ID: "p1", Name: "Remodel"}}, nil
	}

	params := map[string]string{"status": "active"}
	first, err := Fetch(ctx, s, "projects.list", params, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Fetch(ctx, s, "projects.list", params, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if computes != 1 {
		t.Fatalf("computed %d times, want 1 (second call served from cache)", computes)
	}
	if len(first) != 1 || len(second) != 1 || second[0].ID != "p1" {
		t.Fatalf("results differ: first=%v second=%v", first, second)
	}
}

func TestDistinctParamsGetDistinctKeys(t *testing.T) {
	k1, err := Key("t1", "projects.list", map[string]string{"status": "active"})
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := Key("t1", "projects.list", map[string]string{"status": "on_hold"})
	k3, _ := Key("t2", "projects.list", map[string]string{"status": "active"})

	if k1 == k2 {
		t.Error("different params produced the same key")
	}
	if k1 == k3 {
		t.Error("different tenants produced the same key")
	}
	if !strings.Contains(k1, "t1") {
		t.Errorf("key %q missing tenant segment", k1)
	}
}

func TestInvalidateDeletesOnlyTenantKeys(t *testing.T) {
	c := newMemCache()
	s := newStore(c)

	compute := func(context.Context) (int, error) { return 42, nil }
	if _, err := Fetch(tenantCtx("t1"), s, "projects.list", "a", compute); err != nil {
		t.Fatal(err)
	}
	if _, err := Fetch(tenantCtx("t1"), s, "projects.list", "b", compute); err != nil {
		t.Fatal(err)
	}
	if _, err := Fetch(tenantCtx("t2"), s, "projects.list", "a", compute); err != nil {
		t.Fatal(err)
	}

	if err := s.Invalidate(context.Background(), "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.deletions) != 2 {
		t.Fatalf("deleted %d keys, want exactly the 2 issued for t1: %v", len(c.deletions), c.deletions)
	}
	for _, key := range c.deletions {
		if !strings.Contains(key, "t1") {
			t.Errorf("deleted another tenant's key: %s", key)
		}
	}
	if s.TrackedKeys("t1") != 0 {
		t.Error("t1 index not cleared")
	}
	if s.TrackedKeys("t2") != 1 {
		t.Error("t2 index disturbed by t1 invalidation")
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	c := newMemCache()
	s := newStore(c)
	ctx := tenantCtx("t1")

	computes := 0
	compute := func(context.Context) (string, error) {
		computes++
		return "result", nil
	}

	_, _ = Fetch(ctx, s, "projects.list", nil, compute)
	if err := s.Invalidate(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	_, _ = Fetch(ctx, s, "projects.list", nil, compute)

	if computes != 2 {
		t.Fatalf("computed %d times, want 2 (invalidation must force recompute)", computes)
	}
}

func TestInvalidateKeepsFailedKeysForRetry(t *testing.T) {
	c := newMemCache()
	s := newStore(c)
	ctx := tenantCtx("t1")

	compute := func(context.Context) (string, error) { return "x", nil }
	_, _ = Fetch(ctx, s, "projects.list", nil, compute)

	key, _ := Key("t1", "projects.list", nil)
	c.failKeys[key] = true

	if err := s.Invalidate(ctx, "t1"); err == nil {
		t.Fatal("expected error when delete fails")
	}
	if s.TrackedKeys("t1") != 1 {
		t.Fatal("failed key dropped from index; stale entry would never be retried")
	}

	// Retry succeeds once the backend recovers.
	c.failKeys[key] = false
	if err := s.Invalidate(ctx, "t1"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if s.TrackedKeys("t1") != 0 {
		t.Fatal("index not cleared after successful retry")
	}
}

func TestFetchWithoutTenantFails(t *testing.T) {
	s := newStore(newMemCache())
	_, err := Fetch(context.Background(), s, "projects.list", nil,
		func(context.Context) (string, error) { return "", nil })
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestCorruptEntryRecomputed(t *testing.T) {
	c := newMemCache()
	s := newStore(c)
	ctx := tenantCtx("t1")

	key, _ := Key("t1", "projects.list", nil)
	c.data[key] = []byte("{not json")

	computes := 0
	got, err := Fetch(ctx, s, "projects.list", nil, func(context.Context) (int, error) {
		computes++
		return 7, nil
	})
	if err != nil || got != 7 || computes != 1 {
		t.Fatalf("got=%d err=%v computes=%d", got, err, computes)
	}
}

func TestMetricHooks(t *testing.T) {
	c := newMemCache()
	s := newStore(c)
	ctx := tenantCtx("t1")

	var hits, misses int
	s.OnHit = func(context.Context, string) { hits++ }
	s.OnMiss = func(context.Context, string) { misses++ }

	compute := func(context.Context) (string, error) { return "x", nil }
	_, _ = Fetch(ctx, s, "projects.list", nil, compute)
	_, _ = Fetch(ctx, s, "projects.list", nil, compute)

	if misses != 1 || hits != 1 {
		t.Fatalf("hits=%d misses=%d, want 1/1", hits, misses)
	}
}
