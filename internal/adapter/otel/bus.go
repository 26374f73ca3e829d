package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/bblanco3/erp-backend/internal/bus"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// Dispatcher is the bus surface the instrumentation wraps.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd bus.Command) (any, error)
	Ask(ctx context.Context, q bus.Query) (any, error)
}

// InstrumentedBus decorates a bus with spans and metrics per dispatch.
type InstrumentedBus struct {
	next Dispatcher
	m    *Metrics
}

// InstrumentBus wraps next with tracing and metrics.
func InstrumentBus(next Dispatcher, m *Metrics) *InstrumentedBus {
	return &InstrumentedBus{next: next, m: m}
}

// Dispatch forwards the command, recording a span, counters and duration.
func (b *InstrumentedBus) Dispatch(ctx context.Context, cmd bus.Command) (any, error) {
	name := cmd.CommandName()
	ctx, span := StartCommandSpan(ctx, name, tenantdb.TenantIDFromContext(ctx))
	defer span.End()

	start := time.Now()
	res, err := b.next.Dispatch(ctx, cmd)

	attrs := metric.WithAttributes(attribute.String("command.name", name))
	b.m.CommandsDispatched.Add(ctx, 1, attrs)
	b.m.CommandDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		b.m.CommandsFailed.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// Ask forwards the query under a span.
func (b *InstrumentedBus) Ask(ctx context.Context, q bus.Query) (any, error) {
	ctx, span := StartQuerySpan(ctx, q.QueryName(), tenantdb.TenantIDFromContext(ctx))
	defer span.End()

	res, err := b.next.Ask(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}
