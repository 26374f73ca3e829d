package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bblanco3/erp-backend/internal/domain/ledger"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// LedgerStore appends to and reads the change ledger in the bound tenant
// schema. The ledger is append-only: rows are never updated except for
// the processed flag, and never deleted.
type LedgerStore struct{}

// NewLedgerStore creates a LedgerStore.
func NewLedgerStore() *LedgerStore { return &LedgerStore{} }

const ledgerColumns = `id, tenant_id, model_type, model_id, action, user_id, changes, processed, created_at`

func scanEntry(s scannable, e *ledger.Entry) error {
	return s.Scan(&e.ID, &e.TenantID, &e.ModelType, &e.ModelID, &e.Action,
		&e.UserID, &e.Changes, &e.Processed, &e.CreatedAt)
}

// Append inserts a ledger entry. Callers run it on the transaction of
// the mutation it records, so entry and entity commit or roll back
// together.
func (LedgerStore) Append(ctx context.Context, q tenantdb.Querier, e *ledger.Entry) error {
	err := scanEntry(q.QueryRow(ctx,
		`INSERT INTO change_ledger (tenant_id, model_type, model_id, action, user_id, changes)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+ledgerColumns,
		e.TenantID, e.ModelType, e.ModelID, string(e.Action), e.UserID, []byte(e.Changes)), e)
	if err != nil {
		return persistWrap(err, "append ledger entry for %s %s", e.ModelType, e.ModelID)
	}
	return nil
}

// List returns ledger entries newest first, narrowed by the filter.
func (LedgerStore) List(ctx context.Context, q tenantdb.Querier, f ledger.Filter) ([]ledger.Entry, error) {
	conditions := []string{}
	args := []any{}
	argIdx := 1

	if f.ModelType != "" {
		conditions = append(conditions, "model_type = $"+strconv.Itoa(argIdx))
		args = append(args, f.ModelType)
		argIdx++
	}
	if f.ModelID != "" {
		conditions = append(conditions, "model_id = $"+strconv.Itoa(argIdx))
		args = append(args, f.ModelID)
		argIdx++
	}
	if f.Action != "" {
		conditions = append(conditions, "action = $"+strconv.Itoa(argIdx))
		args = append(args, f.Action)
		argIdx++
	}

	sql := `SELECT ` + ledgerColumns + ` FROM change_ledger`
	if len(conditions) > 0 {
		sql += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	sql += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, persistWrap(err, "list ledger entries")
	}
	defer rows.Close()

	out := []ledger.Entry{}
	for rows.Next() {
		var e ledger.Entry
		if err := scanEntry(rows, &e); err != nil {
			return nil, persistWrap(err, "scan ledger entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkProcessed flips the processed flag for a consumed entry.
func (LedgerStore) MarkProcessed(ctx context.Context, q tenantdb.Querier, id string) error {
	tag, err := q.Exec(ctx,
		`UPDATE change_ledger SET processed = TRUE WHERE id = $1 AND NOT processed`, id)
	return execExpectOne(tag, err, "mark ledger entry %s processed", id)
}
