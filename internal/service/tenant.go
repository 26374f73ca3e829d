package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/tenant"
)

// slugRe bounds what we accept as a tenant slug. The slug becomes part
// of a schema name, so it must stay identifier-safe.
var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// TenantRegistry is the persistence port for the master tenant registry.
type TenantRegistry interface {
	CreateTenant(ctx context.Context, name, slug, schema string) (*tenant.Tenant, error)
	TenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	TenantByID(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error
}

// SchemaProvisioner creates and migrates a tenant's database schema.
type SchemaProvisioner interface {
	ProvisionSchema(ctx context.Context, schema string) error
}

// TenantService manages the tenant registry and schema lifecycle. It
// also serves as the resolver's tenant source.
type TenantService struct {
	registry TenantRegistry
	schemas  SchemaProvisioner
	log      *slog.Logger
}

// NewTenantService creates a TenantService.
func NewTenantService(registry TenantRegistry, schemas SchemaProvisioner, log *slog.Logger) *TenantService {
	return &TenantService{registry: registry, schemas: schemas, log: log}
}

// BySlug returns the tenant registered under slug.
func (s *TenantService) BySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.registry.TenantBySlug(ctx, slug)
}

// ByID returns the tenant with the given ID.
func (s *TenantService) ByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.registry.TenantByID(ctx, id)
}

// List returns every registered tenant.
func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.registry.ListTenants(ctx)
}

// Provision registers a new tenant and creates its schema. The schema is
// migrated before the registry row is written, so a registered tenant is
// always servable.
func (s *TenantService) Provision(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if !slugRe.MatchString(req.Slug) {
		return nil, fmt.Errorf("tenant slug %q: %w", req.Slug, domain.ErrInvalidArgument)
	}
	if req.Name == "" {
		req.Name = req.Slug
	}

	schema := tenant.SchemaName(req.Slug)
	if err := s.schemas.ProvisionSchema(ctx, schema); err != nil {
		return nil, fmt.Errorf("provision schema %s: %w", schema, err)
	}

	t, err := s.registry.CreateTenant(ctx, req.Name, req.Slug, schema)
	if err != nil {
		return nil, err
	}
	s.log.Info("tenant provisioned", "tenant_id", t.ID, "slug", t.Slug, "schema", t.Schema)
	return t, nil
}

// Update applies a registry update: rename, activate or deactivate.
func (s *TenantService) Update(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	t, err := s.registry.TenantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		t.Name = req.Name
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if err := s.registry.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
