package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for graph metrics.
const MeterName = "stategraph"

// MetricsRecorder records graph execution metrics.
// Use NewMetricsRecorder for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration)
	RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64)

	// RecordChunk counts one streamed chunk emitted by a node.
	RecordChunk(ctx context.Context, nodeID string)
}

type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	graphRuns      metric.Int64Counter
	graphLatency   metric.Float64Histogram
	checkpointSize metric.Int64Histogram
	streamChunks   metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(MeterName)
	m := &otelMetrics{}
	var err error

	if m.nodeExecutions, err = meter.Int64Counter("stategraph.node.executions",
		metric.WithDescription("Number of node executions"),
	); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = meter.Float64Histogram("stategraph.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.nodeErrors, err = meter.Int64Counter("stategraph.node.errors",
		metric.WithDescription("Number of node execution errors"),
	); err != nil {
		return nil, err
	}
	if m.graphRuns, err = meter.Int64Counter("stategraph.graph.runs",
		metric.WithDescription("Number of graph runs"),
	); err != nil {
		return nil, err
	}
	if m.graphLatency, err = meter.Float64Histogram("stategraph.graph.latency_ms",
		metric.WithDescription("Graph run latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.checkpointSize, err = meter.Int64Histogram("stategraph.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if m.streamChunks, err = meter.Int64Counter("stategraph.stream.chunks",
		metric.WithDescription("Number of chunks emitted to stream consumers"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMetricsRecorder returns a recorder backed by the global OTel meter
// provider. Set the provider (otel.SetMeterProvider) before the first call.
// Falls back to NoopMetrics if the instruments cannot be created.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))

	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.graphRuns.Add(ctx, 1, attrs)
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("node_id", nodeID)))
}

func (m *otelMetrics) RecordChunk(ctx context.Context, nodeID string) {
	m.streamChunks.Add(ctx, 1, metric.WithAttributes(attribute.String("node_id", nodeID)))
}
