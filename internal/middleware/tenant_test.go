package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/tenant"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

type fakeSource struct {
	tenants     map[string]*tenant.Tenant
	provisioned []string
}

func (f *fakeSource) BySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	t, ok := f.tenants[slug]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", slug, domain.ErrNotFound)
	}
	return t, nil
}

func (f *fakeSource) Provision(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	t := &tenant.Tenant{ID: "prov-" + req.Slug, Slug: req.Slug, Schema: tenant.SchemaName(req.Slug), Active: true}
	f.tenants[req.Slug] = t
	f.provisioned = append(f.provisioned, req.Slug)
	return t, nil
}

type fakeBinder struct {
	bound    []string
	released int
	err      error
}

func (f *fakeBinder) Bind(ctx context.Context, t *tenant.Tenant) (context.Context, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.bound = append(f.bound, t.Slug)
	return tenantdb.WithTenant(ctx, t), func() { f.released++ }, nil
}

func newResolver(src *fakeSource, b *fakeBinder) *TenantResolver {
	return &TenantResolver{
		Source:     src,
		Binder:     b,
		JWTSecret:  []byte("test-secret"),
		BaseDomain: "erp.example.com",
	}
}

func acmeSource() *fakeSource {
	return &fakeSource{tenants: map[string]*tenant.Tenant{
		"acme": {ID: "t-acme", Slug: "acme", Schema: "tenant_acme", Active: true},
		"dead": {ID: "t-dead", Slug: "dead", Schema: "tenant_dead", Active: false},
	}}
}

func serve(tr *TenantResolver, r *http.Request) (*httptest.ResponseRecorder, string) {
	var sawTenant string
	h := tr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawTenant = tenantdb.TenantIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec, sawTenant
}

func TestResolveFromHeader(t *testing.T) {
	binder := &fakeBinder{}
	tr := newResolver(acmeSource(), binder)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("X-Tenant", "acme")

	rec, saw := serve(tr, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if saw != "t-acme" {
		t.Fatalf("handler saw tenant %q, want t-acme", saw)
	}
	if binder.released != 1 {
		t.Fatalf("session released %d times, want 1", binder.released)
	}
}

func TestResolveFromSubdomain(t *testing.T) {
	tr := newResolver(acmeSource(), &fakeBinder{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Host = "acme.erp.example.com:8080"

	rec, saw := serve(tr, req)
	if rec.Code != http.StatusOK || saw != "t-acme" {
		t.Fatalf("status=%d tenant=%q", rec.Code, saw)
	}
}

func TestResolveFromJWTClaim(t *testing.T) {
	tr := newResolver(acmeSource(), &fakeBinder{})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"current_tenant": "acme",
		"exp":            time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Host = "erp.example.com"
	req.Header.Set("Authorization", "Bearer "+signed)

	rec, saw := serve(tr, req)
	if rec.Code != http.StatusOK || saw != "t-acme" {
		t.Fatalf("status=%d tenant=%q body=%s", rec.Code, saw, rec.Body.String())
	}
}

func TestBadSignatureIgnored(t *testing.T) {
	tr := newResolver(acmeSource(), &fakeBinder{})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"current_tenant": "acme"})
	signed, _ := token.SignedString([]byte("wrong-secret"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "erp.example.com"
	req.Header.Set("Authorization", "Bearer "+signed)

	rec, _ := serve(tr, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for forged token", rec.Code)
	}
}

func TestHeaderWinsOverSubdomain(t *testing.T) {
	src := acmeSource()
	src.tenants["other"] = &tenant.Tenant{ID: "t-other", Slug: "other", Schema: "tenant_other", Active: true}
	tr := newResolver(src, &fakeBinder{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "other.erp.example.com"
	req.Header.Set("X-Tenant", "acme")

	_, saw := serve(tr, req)
	if saw != "t-acme" {
		t.Fatalf("handler saw %q, want header tenant t-acme", saw)
	}
}

func TestUnknownTenant404(t *testing.T) {
	tr := newResolver(acmeSource(), &fakeBinder{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant", "ghost")

	rec, _ := serve(tr, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestInactiveTenant404(t *testing.T) {
	tr := newResolver(acmeSource(), &fakeBinder{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant", "dead")

	rec, _ := serve(tr, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUnidentifiedRequest404(t *testing.T) {
	tr := newResolver(acmeSource(), &fakeBinder{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "erp.example.com"

	rec, _ := serve(tr, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAutoProvisionUnknownTenant(t *testing.T) {
	src := acmeSource()
	tr := newResolver(src, &fakeBinder{})
	tr.AutoProvision = true

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant", "newco")

	rec, saw := serve(tr, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if saw != "prov-newco" {
		t.Fatalf("handler saw %q, want provisioned tenant", saw)
	}
	if len(src.provisioned) != 1 || src.provisioned[0] != "newco" {
		t.Fatalf("provisioned = %v", src.provisioned)
	}
}

func TestPoolExhausted503(t *testing.T) {
	binder := &fakeBinder{err: fmt.Errorf("bind: %w", domain.ErrPoolExhausted)}
	tr := newResolver(acmeSource(), binder)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant", "acme")

	rec, _ := serve(tr, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
