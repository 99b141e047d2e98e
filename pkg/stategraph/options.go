package stategraph

import (
	"fmt"
	"log/slog"

	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/graphchat/pkg/stategraph/observability"
)

const (
	// DefaultMaxIterations bounds node executions per run.
	DefaultMaxIterations = 1000

	// MaxIterationsLimit is the largest value WithMaxIterations accepts.
	MaxIterationsLimit = 100000
)

// StreamMode selects which events Stream yields.
type StreamMode int

const (
	// StreamUpdates yields one EventNode per executed node. Default.
	StreamUpdates StreamMode = iota

	// StreamMessages yields only EventChunk values emitted by nodes,
	// typically LLM tokens.
	StreamMessages

	// StreamAll yields both chunk and node events.
	StreamAll
)

// String returns the mode name.
func (m StreamMode) String() string {
	switch m {
	case StreamUpdates:
		return "updates"
	case StreamMessages:
		return "messages"
	case StreamAll:
		return "all"
	default:
		return "unknown"
	}
}

// runConfig holds per-run execution settings.
type runConfig struct {
	maxIterations int
	streamMode    StreamMode

	// Checkpointing
	checkpointStore        checkpoint.Store
	threadID               string
	sequence               int
	checkpointFailureFatal bool

	// Observability
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// defaultRunConfig returns the defaults: no checkpointing, no-op metrics
// and tracing, no observability logger.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations:          DefaultMaxIterations,
		streamMode:             StreamUpdates,
		checkpointFailureFatal: true,
		metrics:                observability.NoopMetrics{},
		spans:                  observability.NoopSpanManager{},
	}
}

// RunOption configures a single Run or Stream call.
type RunOption func(*runConfig)

// WithMaxIterations bounds how many nodes a run may execute.
// Panics if n <= 0 or n > MaxIterationsLimit.
func WithMaxIterations(n int) RunOption {
	if n <= 0 {
		panic("stategraph: max iterations must be > 0")
	}
	if n > MaxIterationsLimit {
		panic(fmt.Sprintf("stategraph: max iterations exceeds limit (%d)", MaxIterationsLimit))
	}
	return func(c *runConfig) {
		c.maxIterations = n
	}
}

// WithThreadID names the conversation thread a checkpointed run belongs to.
// Required when the graph was compiled WithCheckpointer or the run uses
// WithCheckpointing.
func WithThreadID(id string) RunOption {
	return func(c *runConfig) {
		c.threadID = id
	}
}

// WithCheckpointing overrides the compiled checkpointer for one run.
func WithCheckpointing(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithCheckpointFailureFatal controls whether a failed checkpoint save
// aborts the run. Default true; when false the failure is logged.
func WithCheckpointFailureFatal(fatal bool) RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = fatal
	}
}

// WithStreamMode selects the events Stream yields. Ignored by Run.
func WithStreamMode(mode StreamMode) RunOption {
	return func(c *runConfig) {
		c.streamMode = mode
	}
}

// WithObservabilityLogger logs run and node lifecycle events to logger.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry spans through the global tracer provider.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}
