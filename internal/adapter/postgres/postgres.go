// Package postgres provides the PostgreSQL adapters: the master
// connection pool, schema migrations, and the entity stores.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql (needed by goose)
	"github.com/pressly/goose/v3"

	"github.com/bblanco3/erp-backend/internal/config"
)

//go:embed migrations/*.sql
var masterMigrations embed.FS

//go:embed tenantmigrations/*.sql
var tenantMigrations embed.FS

// NewPool creates the master pgxpool connection pool. The master pool
// serves the tenant registry; per-tenant traffic goes through tenantdb.
func NewPool(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// gooseMu serializes goose runs; its configuration is package-global.
var gooseMu sync.Mutex

// RunMigrations applies all pending master migrations (tenant registry)
// from the embedded SQL files.
func RunMigrations(ctx context.Context, dsn string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(masterMigrations)
	goose.SetTableName("goose_db_version")

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// SchemaManager provisions tenant schemas against one database.
type SchemaManager struct {
	dsn string
}

// NewSchemaManager creates a SchemaManager for the given DSN.
func NewSchemaManager(dsn string) *SchemaManager {
	return &SchemaManager{dsn: dsn}
}

// ProvisionSchema creates and migrates one tenant schema.
func (m *SchemaManager) ProvisionSchema(ctx context.Context, schema string) error {
	return ProvisionSchema(ctx, m.dsn, schema)
}

// ProvisionSchema creates a tenant schema and applies the tenant
// template migrations inside it. Safe to call for an existing schema;
// goose skips applied versions.
func ProvisionSchema(ctx context.Context, dsn, schema string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(tenantMigrations)
	// Each schema carries its own version table.
	goose.SetTableName(schema + ".goose_db_version")
	defer goose.SetTableName("goose_db_version")

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for tenant provisioning: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Single connection so the search_path set below holds for the
	// whole migration run.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %q", schema)); err != nil {
		return fmt.Errorf("set search_path %s: %w", schema, err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "tenantmigrations"); err != nil {
		return fmt.Errorf("provision schema %s: %w", schema, err)
	}

	return nil
}
