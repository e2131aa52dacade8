package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan opens a span for an internal operation and returns the derived
// context plus a closer that records the outcome.
//
//	ctx, end := tracing.StartSpan(ctx, "feed.rank")
//	defer func() { end(err) }()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer("swipehire").Start(ctx, name,
		trace.WithAttributes(attrs...),
	)
	return ctx, endFunc(span)
}

// StartCacheSpan opens a client span for a feed session cache operation
// against Redis.
func StartCacheSpan(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := otel.Tracer("swipehire/feedcache").Start(ctx, "cache "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", operation),
		),
	)
	return ctx, endFunc(span)
}

func endFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
