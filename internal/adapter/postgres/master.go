package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bblanco3/erp-backend/internal/domain/tenant"
)

// MasterStore persists the tenant registry through the master pool. The
// registry lives in the public schema; tenant data never does.
type MasterStore struct {
	pool *pgxpool.Pool
}

// NewMasterStore creates a MasterStore backed by the master pool.
func NewMasterStore(pool *pgxpool.Pool) *MasterStore {
	return &MasterStore{pool: pool}
}

const tenantColumns = `id, name, slug, schema_name, active, created_at, updated_at`

func scanTenant(s scannable, t *tenant.Tenant) error {
	return s.Scan(&t.ID, &t.Name, &t.Slug, &t.Schema, &t.Active, &t.CreatedAt, &t.UpdatedAt)
}

// CreateTenant inserts a tenant registry row.
func (s *MasterStore) CreateTenant(ctx context.Context, name, slug, schema string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := scanTenant(s.pool.QueryRow(ctx,
		`INSERT INTO tenants (name, slug, schema_name) VALUES ($1, $2, $3) RETURNING `+tenantColumns,
		name, slug, schema), &t)
	if err != nil {
		return nil, persistWrap(err, "create tenant %s", slug)
	}
	return &t, nil
}

// TenantBySlug looks a tenant up by its slug.
func (s *MasterStore) TenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug), &t)
	if err != nil {
		return nil, notFoundWrap(err, "tenant %s", slug)
	}
	return &t, nil
}

// TenantByID looks a tenant up by ID.
func (s *MasterStore) TenantByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id), &t)
	if err != nil {
		return nil, notFoundWrap(err, "tenant %s", id)
	}
	return &t, nil
}

// ListTenants returns all tenants ordered by slug.
func (s *MasterStore) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, persistWrap(err, "list tenants")
	}
	defer rows.Close()

	var out []tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := scanTenant(rows, &t); err != nil {
			return nil, persistWrap(err, "scan tenant")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTenant updates mutable registry fields.
func (s *MasterStore) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET name = $2, active = $3, updated_at = now() WHERE id = $1`,
		t.ID, t.Name, t.Active)
	return execExpectOne(tag, err, "update tenant %s", t.ID)
}
