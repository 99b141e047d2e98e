package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for graph spans.
const TracerName = "stategraph"

// SpanManager handles span lifecycle for runs and nodes.
// Use NewSpanManager for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts the span covering a whole run.
	StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span)

	// StartNodeSpan starts a child span for one node execution.
	StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span)

	// EndSpanWithError ends span, recording err if non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span in ctx, if it is recording.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager resolves the tracer on every call so tests can swap the
// global provider.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager using the global OTel tracer provider.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

func (m otelSpanManager) StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "stategraph.run",
		trace.WithAttributes(
			attribute.String("graph.name", graphName),
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m otelSpanManager) StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "stategraph.node."+nodeID,
		trace.WithAttributes(attribute.String("node.id", nodeID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
