package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const storeTracerName = "mergematrix/store"

// StartStoreSpan opens a client span around one logical store operation,
// e.g. "generation.record_consumption".
func StartStoreSpan(ctx context.Context, operation, backend string) (context.Context, trace.Span) {
	return otel.Tracer(storeTracerName).Start(ctx, operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", backend),
			attribute.String("mergematrix.operation", operation),
		),
	)
}

// FailSpan marks the span in ctx as failed without leaking the error text.
func FailSpan(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(SafeError(err))
	span.SetStatus(codes.Error, "store error")
}
