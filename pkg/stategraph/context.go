package stategraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context is the execution context handed to nodes and routers.
// It extends context.Context with the run's logger, identifiers and a
// channel back to a streaming caller.
//
// The executor derives a fresh Context for every node with NodeID set and
// the logger enriched with run_id, node_id and attempt.
type Context interface {
	context.Context

	// Logger returns the run logger. Never nil.
	Logger() *slog.Logger

	// RunID returns the run identifier. For checkpointed runs this is the
	// thread ID.
	RunID() string

	// NodeID returns the node being executed, or "" outside a node.
	NodeID() string

	// Attempt returns the attempt number (1 = first attempt).
	Attempt() int

	// Emit forwards an incremental value (typically an LLM token) to the
	// caller of Stream as an EventChunk. It is a no-op for Run and for
	// stream modes that exclude chunks.
	Emit(chunk any)
}

type emitFunc func(nodeID string, chunk any)

// executionContext is the implementation of Context.
type executionContext struct {
	context.Context

	logger  *slog.Logger
	runID   string
	nodeID  string
	attempt int
	emit    emitFunc
}

func (c *executionContext) Logger() *slog.Logger { return c.logger }

func (c *executionContext) RunID() string { return c.runID }

func (c *executionContext) NodeID() string { return c.nodeID }

func (c *executionContext) Attempt() int { return c.attempt }

// Emit implements Context.
func (c *executionContext) Emit(chunk any) {
	if c.emit == nil {
		return
	}
	c.emit(c.nodeID, chunk)
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger nodes receive.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextRunID sets the run identifier. A UUID is generated otherwise.
// Checkpointed runs are keyed by WithThreadID, not by this value.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext wraps a standard context for graph execution.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(logger))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.NewString(),
		attempt: 1,
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// asExecutionContext returns ctx as the concrete implementation, wrapping
// foreign Context implementations so the executor can attach emitters.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return &executionContext{
		Context: ctx,
		logger:  ctx.Logger(),
		runID:   ctx.RunID(),
		nodeID:  ctx.NodeID(),
		attempt: ctx.Attempt(),
	}
}

// withRunID returns a copy bound to a different run identifier.
func (c *executionContext) withRunID(runID string) *executionContext {
	cp := *c
	cp.runID = runID
	return &cp
}

// withParent returns a copy whose deadline, cancellation and values come
// from parent (a span context or a cancelable child).
func (c *executionContext) withParent(parent context.Context) *executionContext {
	cp := *c
	cp.Context = parent
	return &cp
}

// withEmitter returns a copy that forwards Emit calls to fn.
func (c *executionContext) withEmitter(fn emitFunc) *executionContext {
	cp := *c
	cp.emit = fn
	return &cp
}

// withNodeID returns a copy for executing nodeID, with an enriched logger.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	cp := *c
	cp.nodeID = nodeID
	cp.logger = c.logger.With("run_id", c.runID, "node_id", nodeID, "attempt", c.attempt)
	return &cp
}
