package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/tenant"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

const headerTenant = "X-Tenant"

// TenantSource loads and provisions tenants from the master store.
type TenantSource interface {
	BySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	Provision(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
}

// SessionBinder leases a tenant-scoped database connection for the
// request and returns the enriched context plus its release function.
type SessionBinder interface {
	Bind(ctx context.Context, t *tenant.Tenant) (context.Context, func(), error)
}

// TenantResolver resolves the tenant for each request and binds a
// tenant-scoped database session into the request context. Resolution
// order: X-Tenant header, host subdomain, then the current_tenant claim
// of a bearer token. Requests that resolve to no active tenant get 404.
type TenantResolver struct {
	Source        TenantSource
	Binder        SessionBinder
	JWTSecret     []byte
	BaseDomain    string // e.g. "erp.example.com"; subdomains identify tenants
	AutoProvision bool   // dev only: provision unknown slugs on first sight
}

// Middleware wraps next with tenant resolution and session binding.
func (tr *TenantResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := tr.identify(r)
		if slug == "" {
			writeResolveError(w, http.StatusNotFound, "tenant could not be identified")
			return
		}

		t, err := tr.load(r.Context(), slug)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrTenantNotFound) {
				writeResolveError(w, http.StatusNotFound, "unknown tenant")
				return
			}
			writeResolveError(w, http.StatusInternalServerError, "tenant lookup failed")
			return
		}
		if !t.Active {
			writeResolveError(w, http.StatusNotFound, "tenant is inactive")
			return
		}

		ctx, release, err := tr.Binder.Bind(r.Context(), t)
		if err != nil {
			if errors.Is(err, domain.ErrPoolExhausted) {
				writeResolveError(w, http.StatusServiceUnavailable, "server is at capacity, retry shortly")
				return
			}
			writeResolveError(w, http.StatusInternalServerError, "database unavailable")
			return
		}
		defer release()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify extracts the tenant slug from the request without touching
// storage.
func (tr *TenantResolver) identify(r *http.Request) string {
	if slug := r.Header.Get(headerTenant); slug != "" {
		return slug
	}
	if slug := tr.subdomain(r.Host); slug != "" {
		return slug
	}
	return tr.claimTenant(r)
}

// subdomain returns the left-most label when host is a subdomain of the
// configured base domain.
func (tr *TenantResolver) subdomain(host string) string {
	if tr.BaseDomain == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	suffix := "." + tr.BaseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}

// tenantClaims carries the tenant slug inside a signed access token.
type tenantClaims struct {
	CurrentTenant string `json:"current_tenant"`
	jwt.RegisteredClaims
}

// claimTenant extracts the current_tenant claim from a bearer token.
// Tokens are verified, never issued, here.
func (tr *TenantResolver) claimTenant(r *http.Request) string {
	if len(tr.JWTSecret) == 0 {
		return ""
	}
	auth := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || raw == "" {
		return ""
	}

	var claims tenantClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return tr.JWTSecret, nil },
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return ""
	}
	return claims.CurrentTenant
}

// load fetches the tenant, provisioning it first when dev
// auto-provisioning is enabled.
func (tr *TenantResolver) load(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := tr.Source.BySlug(ctx, slug)
	if err == nil {
		return t, nil
	}
	if tr.AutoProvision && errors.Is(err, domain.ErrNotFound) {
		return tr.Source.Provision(ctx, tenant.CreateRequest{Name: slug, Slug: slug})
	}
	return nil, err
}

func writeResolveError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// TenantIDFromContext returns the resolved tenant's ID for the request,
// or "" when resolution has not run.
func TenantIDFromContext(ctx context.Context) string {
	return tenantdb.TenantIDFromContext(ctx)
}
