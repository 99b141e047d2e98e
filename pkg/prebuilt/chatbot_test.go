package prebuilt_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/prebuilt"
	"github.com/randalmurphal/graphchat/pkg/retry"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
)

func testCtx() stategraph.Context {
	return stategraph.NewContext(context.Background())
}

func chatGraph(t *testing.T, model *llm.ChatModel, opts ...stategraph.CompileOption) *stategraph.CompiledGraph[prebuilt.MessagesState] {
	t.Helper()
	compiled, err := stategraph.NewGraph[prebuilt.MessagesState]().
		AddNode("chatbot", prebuilt.Chatbot(model)).
		AddEdge(stategraph.START, "chatbot").
		AddEdge("chatbot", stategraph.END).
		Compile(opts...)
	require.NoError(t, err)
	return compiled
}

func userTurn(text string) prebuilt.MessagesState {
	return prebuilt.MessagesState{Messages: []llm.Message{llm.UserMessage(text)}}
}

func TestChatbot_AppendsReply(t *testing.T) {
	mock := llm.NewMockClient("Hello! How can I help?")
	compiled := chatGraph(t, llm.NewChatModel(mock))

	out, err := compiled.Run(testCtx(), userTurn("hi"))
	require.NoError(t, err)

	require.Len(t, out.Messages, 2)
	assert.Equal(t, llm.RoleUser, out.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, out.Messages[1].Role)
	assert.Equal(t, "Hello! How can I help?", out.Messages[1].Content)
	assert.NotEmpty(t, out.Messages[1].ID)

	require.Equal(t, 1, mock.CallCount())
	assert.Equal(t, "hi", mock.LastCall().Messages[0].Content)
}

func TestChatbot_EmitsTokensBeforeNodeEvent(t *testing.T) {
	compiled := chatGraph(t, llm.NewChatModel(llm.NewMockClient("one two three")))

	var chunks []string
	var nodes []string
	for ev, err := range compiled.Stream(testCtx(), userTurn("count"), stategraph.WithStreamMode(stategraph.StreamAll)) {
		require.NoError(t, err)
		switch ev.Type {
		case stategraph.EventChunk:
			assert.Empty(t, nodes, "chunks must precede the node event")
			assert.Equal(t, "chatbot", ev.NodeID)
			chunks = append(chunks, ev.Chunk.(string))
		case stategraph.EventNode:
			nodes = append(nodes, ev.NodeID)
			last, ok := ev.State.LastMessage()
			require.True(t, ok)
			assert.Equal(t, "one two three", last.Content)
		}
	}

	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)
	assert.Equal(t, []string{"chatbot"}, nodes)
	assert.Equal(t, "one two three", strings.Join(chunks, ""))
}

func TestChatbot_ModelError(t *testing.T) {
	mock := llm.NewMockClient("").WithError(errors.New("model down"))
	compiled := chatGraph(t, llm.NewChatModel(mock, llm.WithRetry(retry.Never)))

	out, err := compiled.Run(testCtx(), userTurn("hi"))

	var nodeErr *stategraph.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "chatbot", nodeErr.NodeID)
	assert.Contains(t, err.Error(), "model down")
	assert.Len(t, out.Messages, 1)
}

func TestChatbot_MemoryAcrossTurns(t *testing.T) {
	mock := llm.NewMockClient("").WithResponses("Nice to meet you, Will.", "Your name is Will.")
	compiled := chatGraph(t, llm.NewChatModel(mock), stategraph.WithCheckpointer(checkpoint.NewMemoryStore()))

	_, err := compiled.Run(testCtx(), userTurn("Hi there! My name is Will."), stategraph.WithThreadID("1"))
	require.NoError(t, err)

	out, err := compiled.Run(testCtx(), userTurn("Remember my name?"), stategraph.WithThreadID("1"))
	require.NoError(t, err)

	require.Len(t, out.Messages, 4)
	assert.Equal(t, "Your name is Will.", out.Messages[3].Content)

	second := mock.LastCall()
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "Hi there! My name is Will.", second.Messages[0].Content)
	assert.Equal(t, "Nice to meet you, Will.", second.Messages[1].Content)

	other, err := compiled.Run(testCtx(), userTurn("Remember my name?"), stategraph.WithThreadID("2"))
	require.NoError(t, err)
	assert.Len(t, other.Messages, 2)

	saved, err := compiled.State(testCtx(), "1")
	require.NoError(t, err)
	assert.Len(t, saved.Messages, 4)
}

func TestChatbot_CheckpointedRunNeedsThread(t *testing.T) {
	compiled := chatGraph(t, llm.NewChatModel(llm.NewMockClient("x")), stategraph.WithCheckpointer(checkpoint.NewMemoryStore()))

	_, err := compiled.Run(testCtx(), userTurn("hi"))
	require.ErrorIs(t, err, stategraph.ErrRunIDRequired)
}
