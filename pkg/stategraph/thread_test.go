package stategraph

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoGraph(t *testing.T, store checkpoint.Store) *CompiledGraph[Transcript] {
	t.Helper()
	compiled, err := NewGraph[Transcript]().
		AddNode("echo", func(_ Context, s Transcript) (Transcript, error) {
			s.Lines = append(append([]string(nil), s.Lines...), "echo:"+s.Lines[len(s.Lines)-1])
			s.Turns++
			return s, nil
		}).
		AddEdge(START, "echo").
		AddEdge("echo", END).
		Compile(WithCheckpointer(store))
	require.NoError(t, err)
	return compiled
}

func TestThread_RequiresThreadID(t *testing.T) {
	compiled := echoGraph(t, checkpoint.NewMemoryStore())

	_, err := compiled.Run(testCtx(), Transcript{Lines: []string{"hi"}})
	assert.ErrorIs(t, err, ErrRunIDRequired)
}

func TestThread_RemembersAcrossRuns(t *testing.T) {
	for name, open := range map[string]func(t *testing.T) checkpoint.Store{
		"memory": func(*testing.T) checkpoint.Store { return checkpoint.NewMemoryStore() },
		"sqlite": func(t *testing.T) checkpoint.Store {
			s, err := checkpoint.NewSQLiteStore(filepath.Join(t.TempDir(), "t.db"))
			require.NoError(t, err)
			return s
		},
	} {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()
			compiled := echoGraph(t, store)

			_, err := compiled.Run(testCtx(), Transcript{Lines: []string{"my name is Ada"}}, WithThreadID("1"))
			require.NoError(t, err)

			result, err := compiled.Run(testCtx(), Transcript{Lines: []string{"what is my name?"}}, WithThreadID("1"))
			require.NoError(t, err)

			want := Transcript{
				Lines: []string{"my name is Ada", "echo:my name is Ada", "what is my name?", "echo:what is my name?"},
				Turns: 2,
			}
			if diff := cmp.Diff(want, result); diff != "" {
				t.Errorf("thread state mismatch (-want +got):\n%s", diff)
			}

			saved, err := compiled.State(testCtx(), "1")
			require.NoError(t, err)
			assert.Equal(t, want, saved)
		})
	}
}

func TestThread_IsolatedByID(t *testing.T) {
	compiled := echoGraph(t, checkpoint.NewMemoryStore())

	_, err := compiled.Run(testCtx(), Transcript{Lines: []string{"a"}}, WithThreadID("1"))
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Transcript{Lines: []string{"b"}}, WithThreadID("2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "echo:b"}, result.Lines)
}

func TestThread_NonMergeableInputReplacesState(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	compiled, err := linearCounter().Compile(WithCheckpointer(store))
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{Value: 10}, WithThreadID("c"))
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{Value: 0}, WithThreadID("c"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Value)
}

func TestThread_RunLevelCheckpointing(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	compiled, err := linearCounter().Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{}, WithCheckpointing(store))
	assert.ErrorIs(t, err, ErrRunIDRequired)

	_, err = compiled.Run(testCtx(), Counter{}, WithCheckpointing(store), WithThreadID("x"))
	require.NoError(t, err)

	infos, err := store.List("x")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "b", infos[1].NodeID)

	_, data, err := checkpoint.Latest(store, "x")
	require.NoError(t, err)
	cp, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, END, cp.NextNode)
	assert.Equal(t, "a", cp.PrevNodeID)
	assert.Equal(t, "x", cp.ThreadID)
}

func TestState_Errors(t *testing.T) {
	withoutStore, err := linearCounter().Compile()
	require.NoError(t, err)
	_, err = withoutStore.State(testCtx(), "1")
	assert.ErrorIs(t, err, ErrNoCheckpointer)

	compiled := echoGraph(t, checkpoint.NewMemoryStore())
	_, err = compiled.State(testCtx(), "never-ran")
	assert.ErrorIs(t, err, ErrNoCheckpoints)

	_, err = compiled.State(testCtx(), "")
	assert.ErrorIs(t, err, ErrRunIDRequired)

	//nolint:staticcheck // nil context is the point of the test
	_, err = compiled.State(nil, "1")
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestState_CorruptCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	compiled := echoGraph(t, store)

	require.NoError(t, store.Save("bad", "echo", []byte("{not json")))
	_, err := compiled.State(testCtx(), "bad")
	assert.ErrorIs(t, err, ErrDeserializeState)

	future, err := json.Marshal(checkpoint.Checkpoint{Version: checkpoint.Version + 1})
	require.NoError(t, err)
	require.NoError(t, store.Save("future", "echo", future))
	_, err = compiled.State(testCtx(), "future")
	assert.ErrorIs(t, err, ErrCheckpointVersionMismatch)

	// A corrupt thread also fails the next run rather than starting fresh.
	_, err = compiled.Run(testCtx(), Transcript{Lines: []string{"x"}}, WithThreadID("bad"))
	assert.True(t, errors.Is(err, ErrDeserializeState))
}

type failingStore struct {
	*checkpoint.MemoryStore
}

func (failingStore) Save(string, string, []byte) error { return errors.New("disk full") }

func TestRun_CheckpointFailure(t *testing.T) {
	store := failingStore{checkpoint.NewMemoryStore()}
	compiled := echoGraph(t, store)

	_, err := compiled.Run(testCtx(), Transcript{Lines: []string{"x"}}, WithThreadID("1"))
	var cpErr *CheckpointError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, "save", cpErr.Op)
	assert.Equal(t, "echo", cpErr.NodeID)

	result, err := compiled.Run(testCtx(), Transcript{Lines: []string{"x"}},
		WithThreadID("1"), WithCheckpointFailureFatal(false))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Turns)
}
