package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "erp-backend"

// StartCommandSpan starts a span for one command dispatch.
func StartCommandSpan(ctx context.Context, name, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "command",
		trace.WithAttributes(
			attribute.String("command.name", name),
			attribute.String("tenant.id", tenantID),
		),
	)
}

// StartQuerySpan starts a span for one query dispatch.
func StartQuerySpan(ctx context.Context, name, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "query",
		trace.WithAttributes(
			attribute.String("query.name", name),
			attribute.String("tenant.id", tenantID),
		),
	)
}

// StartProvisionSpan starts a span for tenant schema provisioning.
func StartProvisionSpan(ctx context.Context, slug string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tenant.provision",
		trace.WithAttributes(
			attribute.String("tenant.slug", slug),
		),
	)
}
