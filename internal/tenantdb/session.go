package tenantdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used by the persistence layer. Both
// *Session and pgx.Tx satisfy it, so store code is written once and runs
// inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is what request handlers see: a Querier that can also open
// transactions. *Session satisfies it.
type Conn interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Session wraps the single connection leased to a request. It lives in
// the request context and is returned to its pool when the request ends.
type Session struct {
	conn *pgx.Conn
}

// NewSession wraps an existing connection. Used by the Manager and by
// provisioning code that operates outside the request path.
func NewSession(conn *pgx.Conn) *Session {
	return &Session{conn: conn}
}

// Exec runs a statement on the leased connection.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.conn.Exec(ctx, sql, args...)
}

// Query runs a query on the leased connection.
func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.conn.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query on the leased connection.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.conn.QueryRow(ctx, sql, args...)
}

// Begin opens a transaction on the leased connection.
func (s *Session) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.conn.Begin(ctx)
}
