package postgres

import (
	"context"

	"github.com/bblanco3/erp-backend/internal/domain/estimate"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// EstimateStore persists estimates and their items in the bound tenant
// schema. Item rows are always loaded with their estimate so the
// calculator sees the full aggregate.
type EstimateStore struct{}

// NewEstimateStore creates an EstimateStore.
func NewEstimateStore() *EstimateStore { return &EstimateStore{} }

const estimateColumns = `id, project_id, number, title, description, status, version,
	COALESCE(revised_from_id::text, ''), total_cost, total_markup, total_price,
	COALESCE(approved_by, ''), COALESCE(approved_at, '0001-01-01T00:00:00Z'::timestamptz),
	COALESCE(rejection_reason, ''), created_at, updated_at`

const itemColumns = `id, estimate_id, description, quantity, unit_price, markup_pct, total_price, position`

func scanEstimate(s scannable, e *estimate.Estimate) error {
	return s.Scan(&e.ID, &e.ProjectID, &e.Number, &e.Title, &e.Description, &e.Status, &e.Version,
		&e.RevisedFromID, &e.TotalCost, &e.TotalMarkup, &e.TotalPrice,
		&e.ApprovedBy, &e.ApprovedAt, &e.RejectionReason, &e.CreatedAt, &e.UpdatedAt)
}

func scanItem(s scannable, it *estimate.Item) error {
	return s.Scan(&it.ID, &it.EstimateID, &it.Description, &it.Quantity,
		&it.UnitPrice, &it.MarkupPct, &it.TotalPrice, &it.Position)
}

// Insert creates an estimate row plus all of its item rows.
func (st EstimateStore) Insert(ctx context.Context, q tenantdb.Querier, e *estimate.Estimate) error {
	err := scanEstimate(q.QueryRow(ctx,
		`INSERT INTO estimates (project_id, number, title, description, status, version,
		                        revised_from_id, total_cost, total_markup, total_price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING `+estimateColumns,
		e.ProjectID, e.Number, e.Title, e.Description, e.Status, e.Version,
		nullIfEmpty(e.RevisedFromID), e.TotalCost, e.TotalMarkup, e.TotalPrice), e)
	if err != nil {
		return persistWrap(err, "insert estimate %s", e.Number)
	}

	for i := range e.Items {
		e.Items[i].EstimateID = e.ID
		if err := st.InsertItem(ctx, q, &e.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns an estimate with its items loaded.
func (st EstimateStore) Get(ctx context.Context, q tenantdb.Querier, id string) (*estimate.Estimate, error) {
	var e estimate.Estimate
	err := scanEstimate(q.QueryRow(ctx,
		`SELECT `+estimateColumns+` FROM estimates WHERE id = $1`, id), &e)
	if err != nil {
		return nil, notFoundWrap(err, "estimate %s", id)
	}

	items, err := st.itemsFor(ctx, q, id)
	if err != nil {
		return nil, err
	}
	e.Items = items
	return &e, nil
}

func (EstimateStore) itemsFor(ctx context.Context, q tenantdb.Querier, estimateID string) ([]estimate.Item, error) {
	rows, err := q.Query(ctx,
		`SELECT `+itemColumns+` FROM estimate_items WHERE estimate_id = $1 ORDER BY position, id`, estimateID)
	if err != nil {
		return nil, persistWrap(err, "load items for estimate %s", estimateID)
	}
	defer rows.Close()

	items := []estimate.Item{}
	for rows.Next() {
		var it estimate.Item
		if err := scanItem(rows, &it); err != nil {
			return nil, persistWrap(err, "scan estimate item")
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List returns estimates filtered by project and/or status, items not
// loaded.
func (EstimateStore) List(ctx context.Context, q tenantdb.Querier, projectID, status string) ([]estimate.Estimate, error) {
	sql := `SELECT ` + estimateColumns + ` FROM estimates WHERE 1=1`
	args := []any{}
	if projectID != "" {
		args = append(args, projectID)
		sql += ` AND project_id = $1`
	}
	if status != "" {
		args = append(args, status)
		if len(args) == 1 {
			sql += ` AND status = $1`
		} else {
			sql += ` AND status = $2`
		}
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, persistWrap(err, "list estimates")
	}
	defer rows.Close()

	out := []estimate.Estimate{}
	for rows.Next() {
		var e estimate.Estimate
		if err := scanEstimate(rows, &e); err != nil {
			return nil, persistWrap(err, "scan estimate")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountForProject reports how many estimates a project has, used for
// sequential numbering.
func (EstimateStore) CountForProject(ctx context.Context, q tenantdb.Querier, projectID string) (int, error) {
	var n int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM estimates WHERE project_id = $1`, projectID).Scan(&n); err != nil {
		return 0, persistWrap(err, "count estimates for project %s", projectID)
	}
	return n, nil
}

// UpdateHeader persists the editable header fields.
func (EstimateStore) UpdateHeader(ctx context.Context, q tenantdb.Querier, e *estimate.Estimate) error {
	tag, err := q.Exec(ctx,
		`UPDATE estimates SET title = $2, description = $3, updated_at = now() WHERE id = $1`,
		e.ID, e.Title, e.Description)
	return execExpectOne(tag, err, "update estimate %s", e.ID)
}

// UpdateStatus persists the lifecycle fields after a transition.
func (EstimateStore) UpdateStatus(ctx context.Context, q tenantdb.Querier, e *estimate.Estimate) error {
	tag, err := q.Exec(ctx,
		`UPDATE estimates SET status = $2, approved_by = $3, approved_at = $4,
		 rejection_reason = $5, updated_at = now() WHERE id = $1`,
		e.ID, e.Status, nullIfEmpty(e.ApprovedBy), nullTime(e.ApprovedAt), nullIfEmpty(e.RejectionReason))
	return execExpectOne(tag, err, "update estimate status %s", e.ID)
}

// UpdateTotals persists the recalculated aggregate totals.
func (EstimateStore) UpdateTotals(ctx context.Context, q tenantdb.Querier, e *estimate.Estimate) error {
	tag, err := q.Exec(ctx,
		`UPDATE estimates SET total_cost = $2, total_markup = $3, total_price = $4, updated_at = now()
		 WHERE id = $1`,
		e.ID, e.TotalCost, e.TotalMarkup, e.TotalPrice)
	return execExpectOne(tag, err, "update estimate totals %s", e.ID)
}

// Delete removes an estimate and, via cascade, its items.
func (EstimateStore) Delete(ctx context.Context, q tenantdb.Querier, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM estimates WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete estimate %s", id)
}

// InsertItem creates an item row and fills in generated fields.
func (EstimateStore) InsertItem(ctx context.Context, q tenantdb.Querier, it *estimate.Item) error {
	err := scanItem(q.QueryRow(ctx,
		`INSERT INTO estimate_items (estimate_id, description, quantity, unit_price, markup_pct, total_price, position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+itemColumns,
		it.EstimateID, it.Description, it.Quantity, it.UnitPrice, it.MarkupPct, it.TotalPrice, it.Position), it)
	if err != nil {
		return persistWrap(err, "insert item for estimate %s", it.EstimateID)
	}
	return nil
}

// UpdateItem persists an item's fields including its derived total.
func (EstimateStore) UpdateItem(ctx context.Context, q tenantdb.Querier, it *estimate.Item) error {
	tag, err := q.Exec(ctx,
		`UPDATE estimate_items SET description = $2, quantity = $3, unit_price = $4,
		 markup_pct = $5, total_price = $6, position = $7 WHERE id = $1`,
		it.ID, it.Description, it.Quantity, it.UnitPrice, it.MarkupPct, it.TotalPrice, it.Position)
	return execExpectOne(tag, err, "update estimate item %s", it.ID)
}

// DeleteItem removes a single item row.
func (EstimateStore) DeleteItem(ctx context.Context, q tenantdb.Querier, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM estimate_items WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete estimate item %s", id)
}
