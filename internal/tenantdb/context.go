package tenantdb

import (
	"context"
	"fmt"

	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/tenant"
)

// Private key types to prevent collisions with other context keys.
type tenantCtxKey struct{}
type sessionCtxKey struct{}

// WithTenant returns a context carrying the resolved tenant.
func WithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, t)
}

// TenantFromContext returns the resolved tenant, or ErrTenantNotFound if
// the request was never bound to one.
func TenantFromContext(ctx context.Context) (*tenant.Tenant, error) {
	t, ok := ctx.Value(tenantCtxKey{}).(*tenant.Tenant)
	if !ok || t == nil {
		return nil, fmt.Errorf("no tenant bound to context: %w", domain.ErrTenantNotFound)
	}
	return t, nil
}

// TenantIDFromContext returns the bound tenant's ID, or "" when unbound.
func TenantIDFromContext(ctx context.Context) string {
	if t, err := TenantFromContext(ctx); err == nil {
		return t.ID
	}
	return ""
}

// WithSession returns a context carrying the request's database session.
func WithSession(ctx context.Context, c Conn) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, c)
}

// SessionFromContext returns the tenant-scoped connection bound to the
// request. Persistence code must obtain its connection here; sessions
// are never shared across requests.
func SessionFromContext(ctx context.Context) (Conn, error) {
	c, ok := ctx.Value(sessionCtxKey{}).(Conn)
	if !ok || c == nil {
		return nil, fmt.Errorf("no database session bound to context: %w", domain.ErrTenantNotFound)
	}
	return c, nil
}
