package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bblanco3/erp-backend/internal/bus"
	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/ledger"
	"github.com/bblanco3/erp-backend/internal/readmodel"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// Service owns business behavior for projects, estimates and employees.
// Handlers run on the tenant session carried by the request context;
// nothing here holds per-tenant state.
type Service struct {
	projects  ProjectStore
	estimates EstimateStore
	employees EmployeeStore
	ledger    LedgerStore

	views *readmodel.Store
	inv   Invalidator
	feed  Feed

	log *slog.Logger
	now func() time.Time
}

// Deps bundles the service's collaborators.
type Deps struct {
	Projects  ProjectStore
	Estimates EstimateStore
	Employees EmployeeStore
	Ledger    LedgerStore
	Views     *readmodel.Store
	Inv       Invalidator
	Feed      Feed
	Log       *slog.Logger
}

// New creates a Service.
func New(d Deps) *Service {
	return &Service{
		projects:  d.Projects,
		estimates: d.Estimates,
		employees: d.Employees,
		ledger:    d.Ledger,
		views:     d.Views,
		inv:       d.Inv,
		feed:      d.Feed,
		log:       d.Log,
		now:       time.Now,
	}
}

// Register binds every handler to the bus. Call once at startup, then
// bus.Assert(Commands(), Queries()) to verify nothing is missing.
func (s *Service) Register(b *bus.Bus) {
	b.RegisterCommand(CmdProjectCreate, command(s.createProject))
	b.RegisterCommand(CmdProjectUpdate, command(s.updateProject))
	b.RegisterCommand(CmdProjectDelete, command(s.deleteProject))

	b.RegisterCommand(CmdEstimateCreate, command(s.createEstimate))
	b.RegisterCommand(CmdEstimateUpdate, command(s.updateEstimate))
	b.RegisterCommand(CmdEstimateDelete, command(s.deleteEstimate))
	b.RegisterCommand(CmdEstimateSubmit, command(s.submitEstimate))
	b.RegisterCommand(CmdEstimateApprove, command(s.approveEstimate))
	b.RegisterCommand(CmdEstimateReject, command(s.rejectEstimate))
	b.RegisterCommand(CmdEstimateRevise, command(s.reviseEstimate))
	b.RegisterCommand(CmdEstimateAddItem, command(s.addEstimateItem))
	b.RegisterCommand(CmdEstimateUpdateItem, command(s.updateEstimateItem))
	b.RegisterCommand(CmdEstimateDeleteItem, command(s.deleteEstimateItem))

	b.RegisterCommand(CmdEmployeeCreate, command(s.createEmployee))
	b.RegisterCommand(CmdEmployeeUpdate, command(s.updateEmployee))
	b.RegisterCommand(CmdEmployeeDelete, command(s.deleteEmployee))

	b.RegisterQuery(QryProjectList, query(s.listProjects))
	b.RegisterQuery(QryProjectGet, query(s.getProject))
	b.RegisterQuery(QryProjectStats, query(s.projectStats))

	b.RegisterQuery(QryEstimateList, query(s.listEstimates))
	b.RegisterQuery(QryEstimateGet, query(s.getEstimate))
	b.RegisterQuery(QryEstimateMarkupPlan, query(s.markupPlan))

	b.RegisterQuery(QryEmployeeList, query(s.listEmployees))
	b.RegisterQuery(QryEmployeeGet, query(s.getEmployee))

	b.RegisterQuery(QryLedgerList, query(s.listLedger))
}

// command adapts a typed handler to the bus signature. Validation runs
// before the handler, so invalid input never opens a transaction.
func command[C interface {
	bus.Command
	Validate() error
}, R any](fn func(context.Context, C) (R, error)) bus.CommandFunc {
	return func(ctx context.Context, cmd bus.Command) (any, error) {
		c, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("command %q: wrong payload type %T: %w",
				cmd.CommandName(), cmd, domain.ErrInvalidArgument)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return fn(ctx, c)
	}
}

// query adapts a typed query handler to the bus signature.
func query[Q bus.Query, R any](fn func(context.Context, Q) (R, error)) bus.QueryFunc {
	return func(ctx context.Context, q bus.Query) (any, error) {
		qq, ok := q.(Q)
		if !ok {
			return nil, fmt.Errorf("query %q: wrong payload type %T: %w",
				q.QueryName(), q, domain.ErrInvalidArgument)
		}
		return fn(ctx, qq)
	}
}

// mutationFn performs the entity writes of one command on tx and returns
// the handler result plus the ledger entry recording the change. The
// entry is appended on the same transaction, so both commit or neither.
type mutationFn[R any] func(ctx context.Context, tx tenantdb.Querier, tenantID string) (R, *ledger.Entry, error)

// mutate runs one command as a single transaction: entity write,
// recalculation, ledger append. After a successful commit the tenant's
// read models are invalidated and the entry is published to the change
// feed; failures there are logged, never surfaced, because the state
// change is already durable.
func mutate[R any](ctx context.Context, s *Service, op string, fn mutationFn[R]) (R, error) {
	var zero R

	t, err := tenantdb.TenantFromContext(ctx)
	if err != nil {
		return zero, err
	}
	conn, err := tenantdb.SessionFromContext(ctx)
	if err != nil {
		return zero, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("begin %s: %w: %w", op, err, domain.ErrPersistence)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, entry, err := fn(ctx, tx, t.ID)
	if err != nil {
		return zero, err
	}
	if entry != nil {
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return zero, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("commit %s: %w: %w", op, err, domain.ErrPersistence)
	}

	s.afterCommit(ctx, op, t.ID, entry)
	return res, nil
}

// afterCommit runs the post-transaction side effects.
func (s *Service) afterCommit(ctx context.Context, op, tenantID string, entry *ledger.Entry) {
	if err := s.inv.Invalidate(ctx, tenantID); err != nil {
		s.log.Warn("read model invalidation failed",
			"op", op, "tenant_id", tenantID, "error", err)
	}
	if s.feed != nil && entry != nil {
		if err := s.feed.Publish(ctx, entry); err != nil {
			s.log.Warn("change feed publish failed",
				"op", op, "tenant_id", tenantID, "model_id", entry.ModelID, "error", err)
		}
	}
}

// listLedger serves the audit trail read. Ledger reads bypass the cache:
// auditors expect to see a write they just made.
func (s *Service) listLedger(ctx context.Context, q ListLedger) ([]ledger.Entry, error) {
	conn, err := tenantdb.SessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, conn, ledger.Filter{
		ModelType: q.ModelType,
		ModelID:   q.ModelID,
		Action:    q.Action,
		Limit:     q.Limit,
	})
}
