package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordNodeExecution(context.Context, string, time.Duration, error) {}
func (NoopMetrics) RecordGraphRun(context.Context, bool, time.Duration)               {}
func (NoopMetrics) RecordCheckpoint(context.Context, string, int64)                   {}
func (NoopMetrics) RecordChunk(context.Context, string)                               {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan trace.Span = noop.Span{}

// StartRunSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartRunSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartNodeSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartNodeSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
