package stategraph

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
)

// State returns the latest saved state of a thread.
//
// Returns ErrNoCheckpointer if the graph was compiled without a store and
// ErrNoCheckpoints if the thread has never run.
func (cg *CompiledGraph[S]) State(ctx Context, threadID string) (S, error) {
	var zero S

	if ctx == nil {
		return zero, ErrNilContext
	}
	if cg.checkpointer == nil {
		return zero, ErrNoCheckpointer
	}
	if threadID == "" {
		return zero, ErrRunIDRequired
	}

	state, _, err := loadLatest[S](cg.checkpointer, threadID)
	return state, err
}

// loadLatest decodes the most recent checkpoint of a thread and returns the
// state with its sequence number.
func loadLatest[S any](store checkpoint.Store, threadID string) (S, int, error) {
	var zero S

	info, data, err := checkpoint.Latest(store, threadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return zero, 0, fmt.Errorf("%w: %s", ErrNoCheckpoints, threadID)
	}
	if err != nil {
		return zero, 0, err
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return zero, 0, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cp.Version != checkpoint.Version {
		return zero, 0, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, 0, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	return state, max(cp.Sequence, info.Sequence), nil
}

// mergeInput combines a thread's saved state with a new run's input.
func mergeInput[S any](saved, input S) S {
	if m, ok := any(saved).(Mergeable[S]); ok {
		return m.Merge(input)
	}
	return input
}
