// Package service implements the command and query handlers: every
// business mutation runs here as one transaction spanning the entity
// write, the recalculation, and the change-ledger append.
package service

import (
	"context"

	"github.com/bblanco3/erp-backend/internal/domain/employee"
	"github.com/bblanco3/erp-backend/internal/domain/estimate"
	"github.com/bblanco3/erp-backend/internal/domain/ledger"
	"github.com/bblanco3/erp-backend/internal/domain/project"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// ProjectStore is the persistence port for projects.
type ProjectStore interface {
	Insert(ctx context.Context, q tenantdb.Querier, p *project.Project) error
	Count(ctx context.Context, q tenantdb.Querier) (int, error)
	Get(ctx context.Context, q tenantdb.Querier, id string) (*project.Project, error)
	List(ctx context.Context, q tenantdb.Querier, status string) ([]project.Project, error)
	Update(ctx context.Context, q tenantdb.Querier, p *project.Project) error
	SoftDelete(ctx context.Context, q tenantdb.Querier, id string) error
	Stats(ctx context.Context, q tenantdb.Querier, projectID string) (*project.Stats, error)
}

// EstimateStore is the persistence port for estimates and their items.
type EstimateStore interface {
	Insert(ctx context.Context, q tenantdb.Querier, e *estimate.Estimate) error
	Get(ctx context.Context, q tenantdb.Querier, id string) (*estimate.Estimate, error)
	List(ctx context.Context, q tenantdb.Querier, projectID, status string) ([]estimate.Estimate, error)
	CountForProject(ctx context.Context, q tenantdb.Querier, projectID string) (int, error)
	UpdateHeader(ctx context.Context, q tenantdb.Querier, e *estimate.Estimate) error
	UpdateStatus(ctx context.Context, q tenantdb.Querier, e *estimate.Estimate) error
	UpdateTotals(ctx context.Context, q tenantdb.Querier, e *estimate.Estimate) error
	Delete(ctx context.Context, q tenantdb.Querier, id string) error
	InsertItem(ctx context.Context, q tenantdb.Querier, it *estimate.Item) error
	UpdateItem(ctx context.Context, q tenantdb.Querier, it *estimate.Item) error
	DeleteItem(ctx context.Context, q tenantdb.Querier, id string) error
}

// EmployeeStore is the persistence port for employees.
type EmployeeStore interface {
	Insert(ctx context.Context, q tenantdb.Querier, e *employee.Employee) error
	Get(ctx context.Context, q tenantdb.Querier, id string) (*employee.Employee, error)
	List(ctx context.Context, q tenantdb.Querier) ([]employee.Employee, error)
	Update(ctx context.Context, q tenantdb.Querier, e *employee.Employee) error
	SoftDelete(ctx context.Context, q tenantdb.Querier, id string) error
}

// LedgerStore is the persistence port for the change ledger.
type LedgerStore interface {
	Append(ctx context.Context, q tenantdb.Querier, e *ledger.Entry) error
	List(ctx context.Context, q tenantdb.Querier, f ledger.Filter) ([]ledger.Entry, error)
}

// Invalidator drops every cached read model for a tenant.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

// Feed publishes committed ledger entries to the change feed.
type Feed interface {
	Publish(ctx context.Context, e *ledger.Entry) error
}
