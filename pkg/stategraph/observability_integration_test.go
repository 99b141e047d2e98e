package stategraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func logMessages(buf *bytes.Buffer) []string {
	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if json.Unmarshal([]byte(line), &rec) == nil {
			msgs = append(msgs, rec["msg"].(string))
		}
	}
	return msgs
}

func TestObservability_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	compiled, err := linearCounter().Compile(WithCheckpointer(checkpoint.NewMemoryStore()))
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{}, WithThreadID("t"), WithObservabilityLogger(logger))
	require.NoError(t, err)
	_, err = compiled.Run(testCtx(), Counter{}, WithThreadID("t"), WithObservabilityLogger(logger))
	require.NoError(t, err)

	msgs := logMessages(&buf)
	assert.Contains(t, msgs, "graph run starting")
	assert.Contains(t, msgs, "node starting")
	assert.Contains(t, msgs, "checkpoint saved")
	assert.Contains(t, msgs, "thread state loaded")
	assert.Equal(t, "graph run completed", msgs[len(msgs)-1])
}

func TestObservability_LoggingOnFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	compiled, err := NewGraph[Counter]().
		AddNode("bad", failingNode(errors.New("nope"))).
		AddEdge(START, "bad").
		AddEdge("bad", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{}, WithObservabilityLogger(logger))
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"last_node":"bad"`)
}

func TestObservability_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		_ = provider.Shutdown(context.Background())
	})

	compiled := tokenGraph(t, "x", "y")
	for _, err := range compiled.Stream(testCtx(), Transcript{}, WithMetrics(true), WithStreamMode(StreamAll)) {
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["stategraph.node.executions"])
	assert.True(t, names["stategraph.graph.runs"])
	assert.True(t, names["stategraph.stream.chunks"])
}

func TestObservability_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	compiled, err := linearCounter().Compile(WithName("chat"))
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{}, WithTracing(true))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "stategraph.node.a", spans[0].Name)
	assert.Equal(t, "stategraph.node.b", spans[1].Name)
	assert.Equal(t, "stategraph.run", spans[2].Name)
	assert.Equal(t, spans[2].SpanContext.SpanID(), spans[0].Parent.SpanID())
}
