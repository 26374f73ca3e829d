package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bblanco3/erp-backend/internal/bus"
	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/tenant"
	"github.com/bblanco3/erp-backend/internal/middleware"
	"github.com/bblanco3/erp-backend/internal/service"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type stubSource struct {
	tenants map[string]*tenant.Tenant
}

func (s *stubSource) BySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	t, ok := s.tenants[slug]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", slug, domain.ErrNotFound)
	}
	return t, nil
}

func (s *stubSource) Provision(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	t := &tenant.Tenant{ID: "ten-new", Slug: req.Slug, Name: req.Name, Active: true}
	s.tenants[req.Slug] = t
	return t, nil
}

type stubBinder struct{}

func (stubBinder) Bind(ctx context.Context, t *tenant.Tenant) (context.Context, func(), error) {
	return tenantdb.WithTenant(ctx, t), func() {}, nil
}

type stubRegistry struct {
	tenants map[string]*tenant.Tenant
}

func (r *stubRegistry) CreateTenant(_ context.Context, name, slug, schema string) (*tenant.Tenant, error) {
	t := &tenant.Tenant{ID: "ten-" + slug, Name: name, Slug: slug, Schema: schema, Active: true}
	r.tenants[t.ID] = t
	return t, nil
}

func (r *stubRegistry) TenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range r.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tenant %s: %w", slug, domain.ErrNotFound)
}

func (r *stubRegistry) TenantByID(_ context.Context, id string) (*tenant.Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (r *stubRegistry) ListTenants(context.Context) ([]tenant.Tenant, error) {
	out := []tenant.Tenant{}
	for _, t := range r.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (r *stubRegistry) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	r.tenants[t.ID] = t
	return nil
}

type stubProvisioner struct {
	schemas []string
}

func (p *stubProvisioner) ProvisionSchema(_ context.Context, schema string) error {
	p.schemas = append(p.schemas, schema)
	return nil
}

type apiHarness struct {
	router      chi.Router
	bus         *bus.Bus
	lastCommand bus.Command
	lastQuery   bus.Query
	commandErr  error
	queryErr    error
	provisioner *stubProvisioner
}

// newAPIHarness wires the router with a stub bus: every command and
// query name resolves to a recorder returning a canned payload, so tests
// observe exactly what the HTTP layer put on the bus.
func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &apiHarness{bus: bus.New(), provisioner: &stubProvisioner{}}
	for _, name := range service.Commands() {
		h.bus.RegisterCommand(name, func(_ context.Context, cmd bus.Command) (any, error) {
			h.lastCommand = cmd
			if h.commandErr != nil {
				return nil, h.commandErr
			}
			return map[string]string{"handled": cmd.CommandName()}, nil
		})
	}
	for _, name := range service.Queries() {
		h.bus.RegisterQuery(name, func(_ context.Context, q bus.Query) (any, error) {
			h.lastQuery = q
			if h.queryErr != nil {
				return nil, h.queryErr
			}
			return map[string]string{"handled": q.QueryName()}, nil
		})
	}

	registry := &stubRegistry{tenants: make(map[string]*tenant.Tenant)}
	tenants := service.NewTenantService(registry, h.provisioner, log)

	resolver := &middleware.TenantResolver{
		Source: &stubSource{tenants: map[string]*tenant.Tenant{
			"acme": {ID: "ten-1", Slug: "acme", Schema: "tenant_acme", Active: true},
		}},
		Binder: stubBinder{},
	}

	router := chi.NewRouter()
	MountRoutes(router, NewHandlers(h.bus, tenants, log), resolver)
	h.router = router
	return h
}

func (h *apiHarness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("X-Tenant", "acme")
	req.Header.Set("X-User-ID", "user-7")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreateProjectBuildsCommand(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/projects",
		`{"name":"Refit","client_name":"ACME Corp","status":"active"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	cmd, ok := h.lastCommand.(service.CreateProject)
	if !ok {
		t.Fatalf("expected CreateProject, got %T", h.lastCommand)
	}
	if cmd.Name != "Refit" || cmd.ClientName != "ACME Corp" || cmd.Status != "active" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if cmd.ActorID != "user-7" {
		t.Fatalf("expected actor from header, got %q", cmd.ActorID)
	}
}

func TestUnknownTenantIs404(t *testing.T) {
	h := newAPIHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("X-Tenant", "ghost")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tenant, got %d", rec.Code)
	}
	if h.lastQuery != nil {
		t.Fatal("no query should reach the bus for an unknown tenant")
	}
}

func TestInvalidBodyIs400(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/projects", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if h.lastCommand != nil {
		t.Fatal("malformed body must not reach the bus")
	}
}

func TestErrorTaxonomyMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", fmt.Errorf("name required: %w", domain.ErrInvalidArgument), http.StatusBadRequest},
		{"not found", fmt.Errorf("estimate x: %w", domain.ErrNotFound), http.StatusNotFound},
		{"state transition", fmt.Errorf("approve draft: %w", domain.ErrInvalidStateTransition), http.StatusConflict},
		{"conflict", fmt.Errorf("stale: %w", domain.ErrConflict), http.StatusConflict},
		{"pool exhausted", fmt.Errorf("acquire: %w", domain.ErrPoolExhausted), http.StatusServiceUnavailable},
		{"persistence", fmt.Errorf("insert: %w", domain.ErrPersistence), http.StatusInternalServerError},
		{"tenant", fmt.Errorf("bind: %w", domain.ErrTenantNotFound), http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newAPIHarness(t)
			h.commandErr = tc.err

			rec := h.do(t, http.MethodPost, "/api/v1/estimates/est-1/submit", "")
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestEstimateItemRouteCarriesBothIDs(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPut, "/api/v1/estimates/est-9/items/item-3",
		`{"description":"Steel","quantity":4,"unit_price":25,"markup_pct":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cmd, ok := h.lastCommand.(service.UpdateEstimateItem)
	if !ok {
		t.Fatalf("expected UpdateEstimateItem, got %T", h.lastCommand)
	}
	if cmd.EstimateID != "est-9" || cmd.ItemID != "item-3" {
		t.Fatalf("unexpected IDs: %+v", cmd)
	}
	if cmd.Item.Quantity != 4 || cmd.Item.UnitPrice != 25 {
		t.Fatalf("unexpected item payload: %+v", cmd.Item)
	}
}

func TestMarkupPlanRequiresTarget(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/estimates/est-1/markup-plan", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without target_pct, got %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/estimates/est-1/markup-plan?target_pct=17.5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	q, ok := h.lastQuery.(service.MarkupPlan)
	if !ok {
		t.Fatalf("expected MarkupPlan, got %T", h.lastQuery)
	}
	if q.TargetPct != 17.5 {
		t.Fatalf("expected target 17.5, got %v", q.TargetPct)
	}
}

func TestLedgerQueryParams(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/ledger?model_type=estimate&action=update&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	q := h.lastQuery.(service.ListLedger)
	if q.ModelType != "estimate" || q.Action != "update" || q.Limit != 5 {
		t.Fatalf("unexpected query: %+v", q)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/ledger?limit=nope", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestProvisionTenant(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/admin/tenants", `{"name":"New Co","slug":"newco"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got tenant.Tenant
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Slug != "newco" || got.Schema != "tenant_newco" {
		t.Fatalf("unexpected tenant: %+v", got)
	}
	if len(h.provisioner.schemas) != 1 || h.provisioner.schemas[0] != "tenant_newco" {
		t.Fatalf("expected schema provisioned, got %v", h.provisioner.schemas)
	}
}

func TestProvisionTenantRejectsBadSlug(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/admin/tenants", `{"name":"Bad","slug":"Not A Slug!"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid slug, got %d", rec.Code)
	}
	if len(h.provisioner.schemas) != 0 {
		t.Fatal("no schema should be provisioned for an invalid slug")
	}
}

func TestAdminRoutesForbiddenOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/admin/tenants", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 outside development, got %d", rec.Code)
	}
}

func TestHealthSkipsTenantResolution(t *testing.T) {
	h := newAPIHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
