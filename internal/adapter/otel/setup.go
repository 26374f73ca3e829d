// Package otel provides OpenTelemetry instrumentation: command bus
// spans and counters, cache and pool metrics, and HTTP middleware.
package otel

import (
	"context"
	"log/slog"
)

// ShutdownFunc is called to flush and shut down the trace provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracer prepares tracing for the process. Spans are recorded
// against the global provider, so without an exporter installed they
// are no-ops; deployments that want traces install a TracerProvider
// before calling this.
func InitTracer(serviceName string) ShutdownFunc {
	slog.Info("tracing initialized", "service", serviceName)
	return func(_ context.Context) error {
		return nil
	}
}
