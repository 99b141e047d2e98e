package checkpoint_test

import (
	"testing"

	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_RoundTrip(t *testing.T) {
	cp := checkpoint.New("thread-1", "chatbot", 4, []byte(`{"messages":[{"role":"user"}]}`), "tools").
		WithPrevNode("tools").
		WithAttempt(2)

	data, err := cp.Marshal()
	require.NoError(t, err)

	got, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, checkpoint.Version, got.Version)
	assert.Equal(t, "thread-1", got.ThreadID)
	assert.Equal(t, "chatbot", got.NodeID)
	assert.Equal(t, 4, got.Sequence)
	assert.Equal(t, "tools", got.NextNode)
	assert.Equal(t, "tools", got.PrevNodeID)
	assert.Equal(t, 2, got.Attempt)
	assert.JSONEq(t, `{"messages":[{"role":"user"}]}`, string(got.State))
	assert.False(t, got.Timestamp.IsZero())
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := checkpoint.Unmarshal([]byte("not json"))
	assert.Error(t, err)
}
