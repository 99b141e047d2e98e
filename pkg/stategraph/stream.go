package stategraph

import (
	"context"
	"iter"
)

// EventType distinguishes stream events.
type EventType int

const (
	// EventNode carries the full state after a node completed.
	EventNode EventType = iota

	// EventChunk carries a value a node passed to Context.Emit.
	EventChunk
)

func (t EventType) String() string {
	switch t {
	case EventNode:
		return "node"
	case EventChunk:
		return "chunk"
	default:
		return "unknown"
	}
}

// Event is one item yielded by Stream.
type Event[S any] struct {
	Type   EventType
	NodeID string

	// State is set for EventNode.
	State S

	// Chunk is set for EventChunk.
	Chunk any
}

// Stream executes the graph like Run and yields events as they happen.
// Which events appear is controlled by WithStreamMode (default
// StreamUpdates: one EventNode per executed node).
//
// A run error is yielded once as the final pair with a zero Event.
// Breaking out of the loop cancels the node currently executing and stops
// the run; checkpoints already saved are kept.
//
// Example:
//
//	for ev, err := range compiled.Stream(ctx, input, stategraph.WithThreadID("1")) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(ev.NodeID)
//	}
func (cg *CompiledGraph[S]) Stream(ctx Context, input S, opts ...RunOption) iter.Seq2[Event[S], error] {
	return func(yield func(Event[S], error) bool) {
		if ctx == nil {
			yield(Event[S]{}, ErrNilContext)
			return
		}

		cfg := defaultRunConfig()
		for _, opt := range opts {
			opt(&cfg)
		}

		ec := asExecutionContext(ctx)
		cancelCtx, cancel := context.WithCancel(ec.Context)
		defer cancel()

		out := func(ev Event[S]) bool {
			if !yield(ev, nil) {
				cancel()
				return false
			}
			return true
		}

		stopped := false
		guarded := func(ev Event[S]) bool {
			if stopped {
				return false
			}
			if !out(ev) {
				stopped = true
			}
			return !stopped
		}

		_, err := cg.run(ec.withParent(cancelCtx), input, &cfg, guarded)
		if err != nil && !stopped {
			yield(Event[S]{}, err)
		}
	}
}
