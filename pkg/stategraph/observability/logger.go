// Package observability carries the structured logging, metrics and tracing
// hooks used by the stategraph executor.
//
// Logging uses slog. Metrics and spans go through the global OpenTelemetry
// providers. Every hook accepts a nil logger or a no-op recorder so a run
// without observability pays nothing.
package observability

import (
	"log/slog"
)

// EnrichLogger adds run_id, node_id and attempt to a logger.
// Returns nil for a nil logger.
func EnrichLogger(logger *slog.Logger, runID, nodeID string, attempt int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
		slog.Int("attempt", attempt),
	)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
	)
}

// LogRunComplete logs a successful run.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunError logs a failed run.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogThreadLoaded logs that a run continues a thread from saved state.
func LogThreadLoaded(logger *slog.Logger, threadID string, sequence int) {
	if logger == nil {
		return
	}
	logger.Debug("thread state loaded",
		slog.String("thread_id", threadID),
		slog.Int("sequence", sequence),
	)
}

func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs a saved checkpoint.
func LogCheckpoint(logger *slog.Logger, nodeID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs a non-fatal checkpoint failure.
func LogCheckpointError(logger *slog.Logger, nodeID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogStreamStopped logs a stream abandoned by its consumer.
func LogStreamStopped(logger *slog.Logger, runID, nodeID string) {
	if logger == nil {
		return
	}
	logger.Info("stream stopped by consumer",
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
	)
}
