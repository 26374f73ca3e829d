package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "erp.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ERP_PORT")
	setString(&cfg.Server.CORSOrigin, "ERP_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ERP_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ERP_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ERP_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ERP_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ERP_PG_HEALTH_CHECK")
	setInt(&cfg.Postgres.TenantMinConns, "ERP_TENANT_MIN_CONNS")
	setInt(&cfg.Postgres.TenantMaxConns, "ERP_TENANT_MAX_CONNS")
	setDuration(&cfg.Postgres.TenantAcquireTimeout, "ERP_TENANT_ACQUIRE_TIMEOUT")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.L1MaxSizeMB, "ERP_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1BackfillTTL, "ERP_CACHE_L1_BACKFILL_TTL")
	setString(&cfg.Cache.L2Bucket, "ERP_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.TTL, "ERP_CACHE_TTL")
	setString(&cfg.Tenancy.Environment, "APP_ENV")
	setString(&cfg.Tenancy.BaseDomain, "ERP_BASE_DOMAIN")
	setString(&cfg.Tenancy.JWTSecret, "ERP_JWT_SECRET")
	setBool(&cfg.Tenancy.AutoProvision, "ERP_AUTO_PROVISION")
	setString(&cfg.Logging.Level, "ERP_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ERP_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ERP_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "ERP_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ERP_BREAKER_TIMEOUT")
}

// validate checks that required fields are set and consistent.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Postgres.TenantMaxConns < 1 {
		return errors.New("postgres.tenant_max_conns must be >= 1")
	}
	if cfg.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Tenancy.AutoProvision && cfg.Tenancy.Environment == "production" {
		return errors.New("tenancy.auto_provision is not allowed in production")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
