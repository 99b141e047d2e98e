package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/graphchat/pkg/stategraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given input state and returns the final
// state.
//
// On error, the returned state is the state at the point of failure.
//
// When the graph has a checkpointer (or the run uses WithCheckpointing),
// WithThreadID is required. The latest saved state of the thread becomes the
// starting state; if S implements Mergeable the input is merged into it,
// otherwise the input replaces it. Each run starts at the entry point.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, input, stategraph.WithThreadID("1"))
func (cg *CompiledGraph[S]) Run(ctx Context, input S, opts ...RunOption) (S, error) {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cg.run(ctx, input, &cfg, nil)
}

// sink receives events during a run. It returns false when the consumer wants
// the run to stop.
type sink[S any] func(Event[S]) bool

// run is shared by Run and Stream.
func (cg *CompiledGraph[S]) run(ctx Context, input S, cfg *runConfig, out sink[S]) (result S, runErr error) {
	if ctx == nil {
		return input, ErrNilContext
	}

	if cfg.checkpointStore == nil {
		cfg.checkpointStore = cg.checkpointer
	}
	if cfg.checkpointStore != nil && cfg.threadID == "" {
		return input, ErrRunIDRequired
	}

	ec := asExecutionContext(ctx)
	runID := ec.runID
	if cfg.threadID != "" {
		runID = cfg.threadID
		ec = ec.withRunID(runID)
	}

	state := input
	if cfg.checkpointStore != nil {
		prior, seq, err := loadLatest[S](cfg.checkpointStore, cfg.threadID)
		switch {
		case errors.Is(err, ErrNoCheckpoints):
		case err != nil:
			return input, err
		default:
			state = mergeInput(prior, input)
			cfg.sequence = seq
			observability.LogThreadLoaded(cfg.logger, runID, seq)
		}
	}

	var stream *streamSink[S]
	if out != nil {
		stream = &streamSink[S]{ctx: ec, out: out, mode: cfg.streamMode, metrics: cfg.metrics}
		ec = ec.withEmitter(stream.chunk)
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	if cfg.tracingEnabled {
		spanCtx, runSpan := cfg.spans.StartRunSpan(ec.Context, cg.name, runID)
		ec = ec.withParent(spanCtx)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var nodeCount int
	result, nodeCount, runErr = cg.loop(ec, state, cfg, stream)

	duration := time.Since(startTime)
	cfg.metrics.RecordGraphRun(ec, runErr == nil, duration)

	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, float64(duration.Milliseconds()), lastNodeOf(runErr))
	} else {
		observability.LogRunComplete(cfg.logger, runID, float64(duration.Milliseconds()), nodeCount)
	}

	return result, runErr
}

// lastNodeOf extracts the failing node from a run error, if any.
func lastNodeOf(err error) string {
	var nodeErr *NodeError
	var maxErr *MaxIterationsError
	var cancelErr *CancellationError
	var panicErr *PanicError
	var routerErr *RouterError
	switch {
	case errors.As(err, &nodeErr):
		return nodeErr.NodeID
	case errors.As(err, &maxErr):
		return maxErr.LastNodeID
	case errors.As(err, &cancelErr):
		return cancelErr.NodeID
	case errors.As(err, &panicErr):
		return panicErr.NodeID
	case errors.As(err, &routerErr):
		return routerErr.FromNode
	}
	return ""
}

// loop walks the graph from the entry point until END, an error, or the
// stream consumer stops. Returns the final state and node count.
func (cg *CompiledGraph[S]) loop(ec *executionContext, state S, cfg *runConfig, stream *streamSink[S]) (S, int, error) {
	current := cg.entryPoint
	prevNode := ""
	iterations := 0
	nodeCount := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, nodeCount, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-ec.Done():
			return state, nodeCount, &CancellationError{
				NodeID:       current,
				State:        state,
				Cause:        ec.Err(),
				WasExecuting: false,
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeCtx := ec
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			var spanCtx context.Context
			spanCtx, nodeSpan = cfg.spans.StartNodeSpan(ec.Context, current)
			nodeCtx = ec.withParent(spanCtx)
		}

		nodeStart := time.Now()
		next, nodeErr := cg.executeNode(nodeCtx, current, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeCtx, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if stream != nil && stream.stopped() {
			// The consumer walked away; whatever the node returned is moot.
			observability.LogStreamStopped(cfg.logger, ec.runID, current)
			return state, nodeCount, nil
		}

		if nodeErr != nil {
			if ec.Err() != nil && errors.Is(nodeErr, ec.Err()) {
				nodeErr = &CancellationError{
					NodeID:       current,
					State:        state,
					Cause:        ec.Err(),
					WasExecuting: true,
				}
			}
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, nodeCount, nodeErr
		}
		state = next
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))
		nodeCount++

		target, err := cg.nextNode(ec, state, current)
		if err != nil {
			return state, nodeCount, err
		}

		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(ec, cfg, current, prevNode, state, target); err != nil {
				return state, nodeCount, err
			}
		}

		if stream != nil && !stream.node(current, state) {
			observability.LogStreamStopped(cfg.logger, ec.runID, current)
			return state, nodeCount, nil
		}

		prevNode = current
		current = target
	}

	return state, nodeCount, nil
}

// saveCheckpoint persists state after a node under the run's thread ID.
func (cg *CompiledGraph[S]) saveCheckpoint(ec *executionContext, cfg *runConfig, nodeID, prevNodeID string, state S, nextNode string) error {
	fail := func(op string, err error) error {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{NodeID: nodeID, Op: op, Err: err}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, op, err)
		return nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fail("serialize", err)
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.threadID, nodeID, cfg.sequence, stateBytes, nextNode).
		WithPrevNode(prevNodeID).
		WithAttempt(ec.attempt)

	data, err := cp.Marshal()
	if err != nil {
		return fail("marshal", err)
	}

	if err := cfg.checkpointStore.Save(cfg.threadID, nodeID, data); err != nil {
		return fail("save", err)
	}

	observability.LogCheckpoint(cfg.logger, nodeID, len(data))
	cfg.metrics.RecordCheckpoint(ec, nodeID, int64(len(data)))
	return nil
}

// executeNode runs one node with panic recovery.
func (cg *CompiledGraph[S]) executeNode(ec *executionContext, nodeID string, state S) (result S, err error) {
	fn, exists := cg.nodes[nodeID]
	if !exists {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(ec.withNodeID(nodeID), state)
	if err != nil {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}
	return result, nil
}

// nextNode picks the successor of current. Conditional edges win over
// simple edges.
func (cg *CompiledGraph[S]) nextNode(ec *executionContext, state S, current string) (string, error) {
	if router, exists := cg.conditionalEdges[current]; exists {
		next := router(ec.withNodeID(current), state)

		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}
		if next != END && !cg.HasNode(next) {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrRouterTargetNotFound,
			}
		}
		return next, nil
	}

	edges := cg.edges[current]
	if len(edges) == 0 {
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}
	return edges[0], nil
}

// streamSink filters run events by mode and remembers when the consumer
// stopped. Emit may be called from goroutines a node spawns, so delivery is
// serialized.
type streamSink[S any] struct {
	mu      sync.Mutex
	ctx     context.Context
	out     sink[S]
	mode    StreamMode
	metrics observability.MetricsRecorder
	closed  bool
}

func (s *streamSink[S]) chunk(nodeID string, chunk any) {
	if s.mode == StreamUpdates {
		return
	}
	s.metrics.RecordChunk(s.ctx, nodeID)
	s.deliver(Event[S]{Type: EventChunk, NodeID: nodeID, Chunk: chunk})
}

func (s *streamSink[S]) node(nodeID string, state S) bool {
	if s.mode == StreamMessages {
		return !s.stopped()
	}
	return s.deliver(Event[S]{Type: EventNode, NodeID: nodeID, State: state})
}

func (s *streamSink[S]) deliver(ev Event[S]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !s.out(ev) {
		s.closed = true
	}
	return !s.closed
}

func (s *streamSink[S]) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
