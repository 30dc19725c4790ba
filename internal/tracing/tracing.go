// Package tracing wraps the OpenTelemetry tracer used around hook dispatches and
// controller reconciles. Without a registered TracerProvider every span is a noop.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "reductstore-operator"

// Tracer is the package-level tracer.
var Tracer = otel.Tracer(tracerName)

// StartHookSpan starts a span for one Juju hook dispatch.
func StartHookSpan(ctx context.Context, hook, unit, model string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "charm.Dispatch",
		trace.WithAttributes(
			attribute.String("juju.hook", hook),
			attribute.String("juju.unit", unit),
			attribute.String("juju.model", model),
		),
	)
}

// StartReconcileSpan starts a span for a controller reconciliation of one object.
func StartReconcileSpan(ctx context.Context, spanName, name, namespace string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.String("k8s.resource.name", name),
			attribute.String("k8s.namespace", namespace),
			attribute.String("k8s.resource.kind", "ReductStore"),
		),
	)
}

// StartChildSpan starts a span under the current trace context.
func StartChildSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, spanName)
}

// RecordError records err on span and marks the span failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
