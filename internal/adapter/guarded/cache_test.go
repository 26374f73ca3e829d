package guarded

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bblanco3/erp-backend/internal/resilience"
)

// flakyCache fails every call while broken is true.
type flakyCache struct {
	broken bool
	data   map[string][]byte
}

func (f *flakyCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if f.broken {
		return nil, false, errors.New("cache store unreachable")
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *flakyCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if f.broken {
		return errors.New("cache store unreachable")
	}
	f.data[key] = value
	return nil
}

func (f *flakyCache) Delete(_ context.Context, key string) error {
	if f.broken {
		return errors.New("cache store unreachable")
	}
	delete(f.data, key)
	return nil
}

func newGuarded(inner *flakyCache) *Cache {
	return New(inner, resilience.NewBreaker(2, time.Minute), slog.New(slog.DiscardHandler))
}

func TestGetPassesThroughWhenHealthy(t *testing.T) {
	inner := &flakyCache{data: map[string][]byte{"k": []byte("v")}}
	c := newGuarded(inner)

	val, ok, err := c.Get(context.Background(), "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("got val=%q ok=%v err=%v", val, ok, err)
	}
}

func TestGetDegradesToMissWhenBroken(t *testing.T) {
	inner := &flakyCache{broken: true, data: map[string][]byte{}}
	c := newGuarded(inner)
	ctx := context.Background()

	for range 5 {
		_, ok, err := c.Get(ctx, "k")
		if err != nil {
			t.Fatalf("get must not fail when remote tier is down: %v", err)
		}
		if ok {
			t.Fatal("unexpected hit from broken cache")
		}
	}
}

func TestSetShedsWhenBroken(t *testing.T) {
	inner := &flakyCache{broken: true, data: map[string][]byte{}}
	c := newGuarded(inner)

	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set must not fail when remote tier is down: %v", err)
	}
}

func TestDeletePropagatesFailure(t *testing.T) {
	inner := &flakyCache{broken: true, data: map[string][]byte{}}
	c := newGuarded(inner)

	if err := c.Delete(context.Background(), "k"); err == nil {
		t.Fatal("delete failure must surface to invalidation callers")
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &flakyCache{broken: true, data: map[string][]byte{}}
	c := newGuarded(inner)
	ctx := context.Background()

	// Two failures trip the breaker; the next delete is rejected fast.
	_ = c.Delete(ctx, "k")
	_ = c.Delete(ctx, "k")
	err := c.Delete(ctx, "k")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after repeated failures, got %v", err)
	}

	// Recovery: once healthy again the circuit closes after the timeout;
	// here we only assert the open state does not mask inner recovery
	// semantics (covered in the resilience package tests).
	inner.broken = false
}
