package stategraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Linear(t *testing.T) {
	compiled, err := linearCounter().Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{Value: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)
}

func TestRun_NilContext(t *testing.T) {
	compiled, err := linearCounter().Compile()
	require.NoError(t, err)

	//nolint:staticcheck // nil context is the point of the test
	_, err = compiled.Run(nil, Counter{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRun_AgentLoop(t *testing.T) {
	var order []string

	compiled, err := NewGraph[Counter]().
		AddNode("chatbot", trackingNode("chatbot", &order)).
		AddNode("tools", trackingNode("tools", &order)).
		AddEdge(START, "chatbot").
		AddConditionalEdge("chatbot", func(_ Context, s Counter) string {
			if s.Value < 5 {
				return "tools"
			}
			return END
		}).
		AddEdge("tools", "chatbot").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Value)
	assert.Equal(t, []string{"chatbot", "tools", "chatbot", "tools", "chatbot"}, order)
}

func TestRun_NodeError(t *testing.T) {
	boom := errors.New("model unavailable")
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", failingNode(boom)).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "b", nodeErr.NodeID)
	assert.Equal(t, "execute", nodeErr.Op)
	assert.Equal(t, 1, result.Value, "state at point of failure")
}

func TestRun_Panic(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", panicNode("kaboom")).
		AddEdge(START, "a").
		AddEdge("a", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Counter{})
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "a", panicErr.NodeID)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestRun_MaxIterations(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("loop", increment).
		AddEdge(START, "loop").
		AddConditionalEdge("loop", func(Context, Counter) string { return "loop" }).
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{}, WithMaxIterations(10))
	assert.ErrorIs(t, err, ErrMaxIterations)

	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 10, maxErr.Max)
	assert.Equal(t, "loop", maxErr.LastNodeID)
	assert.Equal(t, 10, result.Value)
}

func TestRun_RouterErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   error
	}{
		{"empty", "", ErrInvalidRouterResult},
		{"unknown", "ghost", ErrRouterTargetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := NewGraph[Counter]().
				AddNode("a", increment).
				AddEdge(START, "a").
				AddConditionalEdge("a", func(Context, Counter) string { return tt.target }).
				Compile()
			require.NoError(t, err)

			_, err = compiled.Run(testCtx(), Counter{})
			assert.ErrorIs(t, err, tt.want)

			var routerErr *RouterError
			require.ErrorAs(t, err, &routerErr)
			assert.Equal(t, "a", routerErr.FromNode)
			assert.Equal(t, tt.target, routerErr.Returned)
		})
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	compiled, err := linearCounter().Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = compiled.Run(NewContext(ctx), Counter{})
	assert.ErrorIs(t, err, context.Canceled)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "a", cancelErr.NodeID)
	assert.False(t, cancelErr.WasExecuting)
}

func TestRun_CancelledDuringNode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	compiled, err := NewGraph[Counter]().
		AddNode("slow", func(ctx Context, s Counter) (Counter, error) {
			cancel()
			<-ctx.Done()
			return s, ctx.Err()
		}).
		AddEdge(START, "slow").
		AddEdge("slow", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(ctx), Counter{})
	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.True(t, cancelErr.WasExecuting)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NodeContext(t *testing.T) {
	var gotNode, gotRun string
	var gotAttempt int

	compiled, err := NewGraph[Counter]().
		AddNode("inspect", func(ctx Context, s Counter) (Counter, error) {
			gotNode, gotRun, gotAttempt = ctx.NodeID(), ctx.RunID(), ctx.Attempt()
			require.NotNil(t, ctx.Logger())
			ctx.Emit("ignored without a stream")
			return s, nil
		}).
		AddEdge(START, "inspect").
		AddEdge("inspect", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(context.Background(), WithContextRunID("run-7")), Counter{})
	require.NoError(t, err)
	assert.Equal(t, "inspect", gotNode)
	assert.Equal(t, "run-7", gotRun)
	assert.Equal(t, 1, gotAttempt)
}

func TestRun_ConcurrentRunsShareCompiledGraph(t *testing.T) {
	compiled, err := linearCounter().Compile()
	require.NoError(t, err)

	results := make(chan int, 10)
	for i := range 10 {
		go func() {
			r, err := compiled.Run(testCtx(), Counter{Value: i})
			assert.NoError(t, err)
			results <- r.Value - i
		}()
	}
	for range 10 {
		assert.Equal(t, 2, <-results)
	}
}
