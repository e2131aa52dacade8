package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs a recording tracer provider for the duration of the
// test and returns the recorder.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartSpan_RecordsNameAndAttributes(t *testing.T) {
	recorder := recordSpans(t)

	_, end := StartSpan(context.Background(), "feed.rank",
		attribute.Int("feed.pool_size", 500))
	end(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "feed.rank" {
		t.Errorf("expected span name feed.rank, got %q", span.Name())
	}
	if v, ok := attrValue(span, "feed.pool_size"); !ok || v.AsInt64() != 500 {
		t.Errorf("expected feed.pool_size attribute 500, got %v (present=%v)", v, ok)
	}
	if span.Status().Code == codes.Error {
		t.Error("expected non-error status for successful span")
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := recordSpans(t)

	rankErr := errors.New("candidate pool unavailable")
	_, end := StartSpan(context.Background(), "feed.rank")
	end(rankErr)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
	if span.Status().Description != rankErr.Error() {
		t.Errorf("expected status description %q, got %q", rankErr.Error(), span.Status().Description)
	}
	if len(span.Events()) == 0 {
		t.Error("expected a recorded error event")
	}
}

func TestStartCacheSpan_ClientSpanWithRedisAttributes(t *testing.T) {
	recorder := recordSpans(t)

	_, end := StartCacheSpan(context.Background(), "get")
	end(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "cache get" {
		t.Errorf("expected span name %q, got %q", "cache get", span.Name())
	}
	if span.SpanKind() != trace.SpanKindClient {
		t.Errorf("expected client span kind, got %v", span.SpanKind())
	}
	if v, ok := attrValue(span, "db.system"); !ok || v.AsString() != "redis" {
		t.Errorf("expected db.system redis, got %v (present=%v)", v, ok)
	}
	if v, ok := attrValue(span, "db.operation"); !ok || v.AsString() != "get" {
		t.Errorf("expected db.operation get, got %v (present=%v)", v, ok)
	}
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	recorder := recordSpans(t)

	ctx, endParent := StartSpan(context.Background(), "feed.load")
	_, endChild := StartCacheSpan(ctx, "put")
	endChild(nil)
	endParent(nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	child, parent := spans[0], spans[1]
	if child.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("expected cache span to be a child of the feed.load span")
	}
	if child.SpanContext().TraceID() != parent.SpanContext().TraceID() {
		t.Error("expected both spans to share a trace")
	}
}
