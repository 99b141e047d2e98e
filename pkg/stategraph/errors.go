package stategraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates neither SetEntry nor AddEdge(START, ...) was called.
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point names a missing node.
	ErrEntryNotFound = errors.New("entry point node not found")

	// ErrNodeNotFound indicates an edge references a missing node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoPathToEnd indicates END is unreachable from the entry point.
	ErrNoPathToEnd = errors.New("no path to END from entry")
)

// Sentinel errors for execution.
var (
	// ErrMaxIterations indicates the run exceeded its node execution budget.
	ErrMaxIterations = errors.New("exceeded maximum iterations")

	// ErrNilContext indicates Run or Stream was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrInvalidRouterResult indicates a router returned an empty string.
	ErrInvalidRouterResult = errors.New("router returned empty string")

	// ErrRouterTargetNotFound indicates a router returned an unknown node ID.
	ErrRouterTargetNotFound = errors.New("router returned unknown node")
)

// Sentinel errors for checkpointing and threads.
var (
	// ErrRunIDRequired indicates a checkpointed run has no thread ID.
	ErrRunIDRequired = errors.New("thread ID required for checkpointing")

	// ErrNoCheckpoints indicates a thread has no saved state.
	ErrNoCheckpoints = errors.New("no checkpoints found for thread")

	// ErrNoCheckpointer indicates State was called on a graph without a store.
	ErrNoCheckpointer = errors.New("graph has no checkpointer")

	// ErrDeserializeState indicates saved state could not be decoded.
	ErrDeserializeState = errors.New("failed to deserialize state")

	// ErrCheckpointVersionMismatch indicates an incompatible checkpoint format.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")
)

// CheckpointError wraps a failed checkpoint operation.
type CheckpointError struct {
	NodeID string
	Op     string // "serialize", "marshal", "save"
	Err    error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }

// NodeError wraps an error returned by a node.
type NodeError struct {
	NodeID string
	Op     string // "execute", "lookup", "routing"
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// PanicError captures a recovered node panic and its stack.
type PanicError struct {
	NodeID string
	Value  any
	Stack  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError reports a run stopped by its context.
// State holds the state at the point of cancellation.
type CancellationError struct {
	NodeID       string
	State        any
	Cause        error
	WasExecuting bool
}

func (e *CancellationError) Error() string {
	if e.WasExecuting {
		return fmt.Sprintf("cancelled during node %s: %v", e.NodeID, e.Cause)
	}
	return fmt.Sprintf("cancelled before node %s: %v", e.NodeID, e.Cause)
}

func (e *CancellationError) Unwrap() error { return e.Cause }

// RouterError reports an invalid router result.
type RouterError struct {
	FromNode string
	Returned string
	Err      error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromNode, e.Returned, e.Err)
}

func (e *RouterError) Unwrap() error { return e.Err }

// MaxIterationsError reports a run that exceeded its iteration budget.
type MaxIterationsError struct {
	Max        int
	LastNodeID string
	State      any
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

func (e *MaxIterationsError) Unwrap() error { return ErrMaxIterations }
