package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	erphttp "github.com/bblanco3/erp-backend/internal/adapter/http"
	"github.com/bblanco3/erp-backend/internal/adapter/guarded"
	"github.com/bblanco3/erp-backend/internal/adapter/natsfeed"
	"github.com/bblanco3/erp-backend/internal/adapter/natskv"
	"github.com/bblanco3/erp-backend/internal/adapter/otel"
	"github.com/bblanco3/erp-backend/internal/adapter/postgres"
	"github.com/bblanco3/erp-backend/internal/adapter/ristretto"
	"github.com/bblanco3/erp-backend/internal/adapter/tiered"
	"github.com/bblanco3/erp-backend/internal/bus"
	"github.com/bblanco3/erp-backend/internal/config"
	"github.com/bblanco3/erp-backend/internal/logger"
	"github.com/bblanco3/erp-backend/internal/middleware"
	"github.com/bblanco3/erp-backend/internal/pool"
	"github.com/bblanco3/erp-backend/internal/readmodel"
	"github.com/bblanco3/erp-backend/internal/resilience"
	"github.com/bblanco3/erp-backend/internal/service"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"environment", cfg.Tenancy.Environment,
		"log_level", cfg.Logging.Level,
		"tenant_max_conns", cfg.Postgres.TenantMaxConns,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// PostgreSQL master pool (tenant registry)
	masterPool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer masterPool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("master migrations applied")

	// NATS: change feed and L2 cache bucket
	feed, err := natsfeed.Connect(ctx, cfg.NATS.URL, log)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = feed.Close() }()

	// --- Observability ---

	shutdownTracer := otel.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(ctx) }()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Read-model cache: ristretto L1 over a breaker-guarded NATS KV L2 ---

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	kv, err := feed.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("l2 cache: %w", err)
	}
	l2 := guarded.New(natskv.New(kv),
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout), log)

	views := readmodel.New(tiered.New(l1, l2, cfg.Cache.L1BackfillTTL), cfg.Cache.TTL, log)
	views.OnHit = func(ctx context.Context, _ string) { metrics.CacheHits.Add(ctx, 1) }
	views.OnMiss = func(ctx context.Context, _ string) { metrics.CacheMisses.Add(ctx, 1) }

	// --- Tenancy ---

	manager := tenantdb.NewManager(cfg.Postgres.DSN, pool.Config{
		MinConns:       cfg.Postgres.TenantMinConns,
		MaxConns:       cfg.Postgres.TenantMaxConns,
		AcquireTimeout: cfg.Postgres.TenantAcquireTimeout,
	}, log)
	defer func() { _ = manager.Close(ctx) }()
	manager.OnAcquireWait = func(ctx context.Context, seconds float64) {
		metrics.PoolAcquireWait.Record(ctx, seconds)
	}

	registry := postgres.NewMasterStore(masterPool)
	tenants := service.NewTenantService(registry,
		postgres.NewSchemaManager(cfg.Postgres.DSN), log)

	// --- Services and bus ---

	svc := service.New(service.Deps{
		Projects:  postgres.NewProjectStore(),
		Estimates: postgres.NewEstimateStore(),
		Employees: postgres.NewEmployeeStore(),
		Ledger:    postgres.NewLedgerStore(),
		Views:     views,
		Inv:       views,
		Feed:      feed,
		Log:       log,
	})

	b := bus.New()
	svc.Register(b)
	if err := b.Assert(service.Commands(), service.Queries()); err != nil {
		return fmt.Errorf("bus: %w", err)
	}

	// --- HTTP ---

	resolver := &middleware.TenantResolver{
		Source:        tenants,
		Binder:        manager,
		JWTSecret:     []byte(cfg.Tenancy.JWTSecret),
		BaseDomain:    cfg.Tenancy.BaseDomain,
		AutoProvision: cfg.Tenancy.AutoProvision,
	}

	handlers := erphttp.NewHandlers(otel.InstrumentBus(b, metrics), tenants, log)

	r := chi.NewRouter()
	r.Use(erphttp.CORS(cfg.Server.CORSOrigin))
	r.Use(erphttp.SecurityHeaders)
	r.Use(erphttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))

	erphttp.MountRoutes(r, handlers, resolver)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
