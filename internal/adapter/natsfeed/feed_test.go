package natsfeed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bblanco3/erp-backend/internal/domain/ledger"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Feed {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f, err := Connect(context.Background(), url, log)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := f.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return f
}

func TestSubject(t *testing.T) {
	e := &ledger.Entry{TenantID: "ten-1", ModelType: "estimate"}
	if got := Subject(e); got != "ledger.ten-1.estimate" {
		t.Fatalf("Subject() = %q", got)
	}
}

func TestFeed_PublishSubscribe(t *testing.T) {
	f := testConnect(t)
	ctx := context.Background()

	// Tenant-unique subject keeps parallel test runs apart.
	tenantID := "test-" + t.Name()
	entry, err := ledger.Created(tenantID, "project", "prj-1", "user-1", map[string]string{"name": "Demo"})
	if err != nil {
		t.Fatalf("build entry: %v", err)
	}
	entry.ID = "led-1"

	var (
		mu       sync.Mutex
		received *ledger.Entry
		done     = make(chan struct{})
		once     sync.Once
	)

	stop, err := f.Subscribe(ctx, "", Subject(entry), func(e *ledger.Entry) error {
		mu.Lock()
		received = e
		mu.Unlock()
		once.Do(func() { close(done) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	if err := f.Publish(ctx, entry); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for feed entry")
	}

	mu.Lock()
	defer mu.Unlock()
	if received == nil || received.ID != entry.ID || received.TenantID != tenantID {
		t.Fatalf("unexpected entry: %+v", received)
	}
}

func TestFeed_KeyValue(t *testing.T) {
	f := testConnect(t)
	ctx := context.Background()

	kv, err := f.KeyValue(ctx, "test-kv-"+t.Name(), 30*time.Second)
	if err != nil {
		t.Fatalf("KeyValue: %v", err)
	}

	if _, err := kv.Put(ctx, "greeting", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entry, err := kv.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(entry.Value()) != "hello" {
		t.Fatalf("value = %q", string(entry.Value()))
	}
	if err := kv.Delete(ctx, "greeting"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestFeed_IsConnected(t *testing.T) {
	f := testConnect(t)
	if !f.IsConnected() {
		t.Fatal("IsConnected() = false after Connect")
	}
}
