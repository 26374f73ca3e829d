package tenantdb

import (
	"context"
	"errors"
	"testing"

	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/tenant"
)

func TestTenantFromContext(t *testing.T) {
	want := &tenant.Tenant{ID: "t1", Slug: "acme", Schema: "tenant_acme"}
	ctx := WithTenant(context.Background(), want)

	got, err := TenantFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "t1" {
		t.Fatalf("tenant ID = %q, want t1", got.ID)
	}
}

func TestTenantFromContextUnbound(t *testing.T) {
	_, err := TenantFromContext(context.Background())
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	if id := TenantIDFromContext(context.Background()); id != "" {
		t.Fatalf("expected empty ID, got %q", id)
	}
}

func TestSessionFromContextUnbound(t *testing.T) {
	_, err := SessionFromContext(context.Background())
	if err == nil {
		t.Fatal("expected error for unbound session")
	}
}

func TestSessionScopedToDerivedContextOnly(t *testing.T) {
	base := context.Background()
	bound := WithSession(base, &Session{})

	if _, err := SessionFromContext(bound); err != nil {
		t.Fatalf("bound context lost its session: %v", err)
	}
	// Binding must not leak into the parent context.
	if _, err := SessionFromContext(base); err == nil {
		t.Fatal("session leaked into parent context")
	}
}
