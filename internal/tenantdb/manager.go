// Package tenantdb binds tenant-scoped database connections to requests.
// Each tenant owns a dedicated schema; connections for a tenant are
// dialed with search_path pinned to that schema and pooled per tenant.
// The active connection travels in the request context as a Session,
// never in package state, so requests cannot observe another tenant's
// binding.
package tenantdb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bblanco3/erp-backend/internal/domain/tenant"
	"github.com/bblanco3/erp-backend/internal/pool"
)

// Manager owns one connection pool per tenant schema, created lazily.
type Manager struct {
	dsn string
	cfg pool.Config
	log *slog.Logger

	// OnAcquireWait, when set, observes how long each session acquisition
	// waited, in seconds.
	OnAcquireWait func(ctx context.Context, seconds float64)

	mu    sync.Mutex
	pools map[string]*pool.Pool[*pgx.Conn]
}

// NewManager creates a Manager dialing against the given DSN. Every pool
// it creates shares the same sizing config.
func NewManager(dsn string, cfg pool.Config, log *slog.Logger) *Manager {
	return &Manager{
		dsn:   dsn,
		cfg:   cfg,
		log:   log,
		pools: make(map[string]*pool.Pool[*pgx.Conn]),
	}
}

// factoryFor returns a dial function whose connections have search_path
// pinned to the tenant schema.
func (m *Manager) factoryFor(schema string) pool.Factory[*pgx.Conn] {
	return func(ctx context.Context) (*pgx.Conn, error) {
		connCfg, err := pgx.ParseConfig(m.dsn)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		connCfg.RuntimeParams["search_path"] = schema
		conn, err := pgx.ConnectConfig(ctx, connCfg)
		if err != nil {
			return nil, fmt.Errorf("connect schema %s: %w", schema, err)
		}
		return conn, nil
	}
}

// poolFor returns the pool for a schema, creating it on first use.
func (m *Manager) poolFor(ctx context.Context, schema string) (*pool.Pool[*pgx.Conn], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pools[schema]; ok {
		return p, nil
	}
	p, err := pool.New(ctx, m.cfg, m.factoryFor(schema))
	if err != nil {
		return nil, fmt.Errorf("create pool for schema %s: %w", schema, err)
	}
	m.pools[schema] = p
	m.log.Debug("tenant pool created", "schema", schema)
	return p, nil
}

// Bind acquires a connection scoped to the tenant's schema and returns a
// context carrying the tenant and its session, plus a release function
// that must be called when the request finishes.
func (m *Manager) Bind(ctx context.Context, t *tenant.Tenant) (context.Context, func(), error) {
	p, err := m.poolFor(ctx, t.Schema)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	conn, err := p.Acquire(ctx)
	if m.OnAcquireWait != nil {
		m.OnAcquireWait(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("bind tenant %s: %w", t.Slug, err)
	}

	sess := &Session{conn: conn}
	release := func() { p.Release(conn) }

	ctx = WithTenant(ctx, t)
	ctx = WithSession(ctx, sess)
	return ctx, release, nil
}

// Close shuts down every tenant pool.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]*pool.Pool[*pgx.Conn])
	m.mu.Unlock()

	var firstErr error
	for schema, p := range pools {
		if err := p.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close pool %s: %w", schema, err)
		}
	}
	return firstErr
}
