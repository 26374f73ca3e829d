package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "erp-backend"

// Metrics holds the service's metric instruments.
type Metrics struct {
	CommandsDispatched metric.Int64Counter
	CommandsFailed     metric.Int64Counter
	CacheHits          metric.Int64Counter
	CacheMisses        metric.Int64Counter
	PoolAcquireWait    metric.Float64Histogram
	CommandDuration    metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CommandsDispatched, err = meter.Int64Counter("erp.commands.dispatched",
		metric.WithDescription("Number of commands dispatched"))
	if err != nil {
		return nil, err
	}

	m.CommandsFailed, err = meter.Int64Counter("erp.commands.failed",
		metric.WithDescription("Number of commands that returned an error"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("erp.readmodel.cache_hits",
		metric.WithDescription("Read-model cache hits"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("erp.readmodel.cache_misses",
		metric.WithDescription("Read-model cache misses"))
	if err != nil {
		return nil, err
	}

	m.PoolAcquireWait, err = meter.Float64Histogram("erp.pool.acquire_wait_seconds",
		metric.WithDescription("Time spent waiting for a tenant connection"))
	if err != nil {
		return nil, err
	}

	m.CommandDuration, err = meter.Float64Histogram("erp.command.duration_seconds",
		metric.WithDescription("Command handling duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
