package postgres

import (
	"context"

	"github.com/bblanco3/erp-backend/internal/domain/project"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// ProjectStore persists projects in the tenant schema bound to the
// request's connection. Deletes are soft: rows are flagged, not removed,
// so the change ledger always has a referent.
type ProjectStore struct{}

// NewProjectStore creates a ProjectStore.
func NewProjectStore() *ProjectStore { return &ProjectStore{} }

const projectColumns = `id, number, name, client_name, description, status,
	COALESCE(start_date, '0001-01-01T00:00:00Z'::timestamptz), COALESCE(end_date, '0001-01-01T00:00:00Z'::timestamptz),
	is_deleted, created_at, updated_at`

func scanProject(s scannable, p *project.Project) error {
	return s.Scan(&p.ID, &p.Number, &p.Name, &p.ClientName, &p.Description, &p.Status,
		&p.StartDate, &p.EndDate, &p.Deleted, &p.CreatedAt, &p.UpdatedAt)
}

// Insert creates a project row and fills in generated fields.
func (ProjectStore) Insert(ctx context.Context, q tenantdb.Querier, p *project.Project) error {
	err := scanProject(q.QueryRow(ctx,
		`INSERT INTO projects (number, name, client_name, description, status, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+projectColumns,
		p.Number, p.Name, p.ClientName, p.Description, p.Status, nullTime(p.StartDate), nullTime(p.EndDate)), p)
	if err != nil {
		return persistWrap(err, "insert project %s", p.Name)
	}
	return nil
}

// Count returns how many projects the tenant has ever created, deleted
// ones included, so assigned numbers are never reused.
func (ProjectStore) Count(ctx context.Context, q tenantdb.Querier) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0, persistWrap(err, "count projects")
	}
	return n, nil
}

// Get returns a live project by ID.
func (ProjectStore) Get(ctx context.Context, q tenantdb.Querier, id string) (*project.Project, error) {
	var p project.Project
	err := scanProject(q.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND NOT is_deleted`, id), &p)
	if err != nil {
		return nil, notFoundWrap(err, "project %s", id)
	}
	return &p, nil
}

// List returns live projects, optionally filtered by status.
func (ProjectStore) List(ctx context.Context, q tenantdb.Querier, status string) ([]project.Project, error) {
	sql := `SELECT ` + projectColumns + ` FROM projects WHERE NOT is_deleted`
	args := []any{}
	if status != "" {
		sql += ` AND status = $1`
		args = append(args, status)
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, persistWrap(err, "list projects")
	}
	defer rows.Close()

	out := []project.Project{}
	for rows.Next() {
		var p project.Project
		if err := scanProject(rows, &p); err != nil {
			return nil, persistWrap(err, "scan project")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update persists mutable project fields.
func (ProjectStore) Update(ctx context.Context, q tenantdb.Querier, p *project.Project) error {
	tag, err := q.Exec(ctx,
		`UPDATE projects SET name = $2, client_name = $3, description = $4, status = $5,
		 start_date = $6, end_date = $7, updated_at = now()
		 WHERE id = $1 AND NOT is_deleted`,
		p.ID, p.Name, p.ClientName, p.Description, p.Status, nullTime(p.StartDate), nullTime(p.EndDate))
	return execExpectOne(tag, err, "update project %s", p.ID)
}

// SoftDelete flags a project as deleted.
func (ProjectStore) SoftDelete(ctx context.Context, q tenantdb.Querier, id string) error {
	tag, err := q.Exec(ctx,
		`UPDATE projects SET is_deleted = TRUE, updated_at = now() WHERE id = $1 AND NOT is_deleted`, id)
	return execExpectOne(tag, err, "delete project %s", id)
}

// Stats computes the estimate aggregates for one project.
func (ProjectStore) Stats(ctx context.Context, q tenantdb.Querier, projectID string) (*project.Stats, error) {
	st := project.Stats{ProjectID: projectID}
	err := q.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'approved'),
		        COUNT(*) FILTER (WHERE status = 'pending'),
		        COALESCE(SUM(total_price), 0),
		        COALESCE(SUM(total_price) FILTER (WHERE status = 'approved'), 0)
		 FROM estimates WHERE project_id = $1`, projectID).
		Scan(&st.EstimateCount, &st.ApprovedCount, &st.PendingCount, &st.TotalEstimated, &st.TotalApproved)
	if err != nil {
		return nil, persistWrap(err, "project stats %s", projectID)
	}
	return &st, nil
}
