package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		client   *ClaudeCLI
		req      CompletionRequest
		contains []string
		excludes []string
	}{
		{
			name:     "basic request",
			client:   NewClaudeCLI(),
			req:      CompletionRequest{Messages: []Message{UserMessage("Hello")}},
			contains: []string{"--print"},
			excludes: []string{"--model", "--system-prompt"},
		},
		{
			name:   "system prompt and system messages",
			client: NewClaudeCLI(),
			req: CompletionRequest{
				SystemPrompt: "Be helpful",
				Messages:     []Message{SystemMessage("Be brief"), UserMessage("Hi")},
			},
			contains: []string{"--system-prompt", "Be helpful\n\nBe brief"},
		},
		{
			name:     "model from client",
			client:   NewClaudeCLI(WithModel("sonnet")),
			req:      CompletionRequest{Messages: []Message{UserMessage("Test")}},
			contains: []string{"--model", "sonnet"},
		},
		{
			name:     "model from request overrides client",
			client:   NewClaudeCLI(WithModel("sonnet")),
			req:      CompletionRequest{Model: "haiku", Messages: []Message{UserMessage("Test")}},
			contains: []string{"--model", "haiku"},
			excludes: []string{"sonnet"},
		},
		{
			name:     "allowed tools",
			client:   NewClaudeCLI(WithAllowedTools([]string{"Read"})),
			req:      CompletionRequest{Messages: []Message{UserMessage("Test")}},
			contains: []string{"--allowedTools", "Read"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.client.buildArgs(tt.req)
			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, args, unwanted)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "Hello", buildPrompt([]Message{SystemMessage("sys"), UserMessage("Hello")}))

	got := buildPrompt([]Message{
		UserMessage("Search Go"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "search"}}},
		ToolMessage("c1", "search", `{"results":[]}`),
		UserMessage("Thanks"),
	})
	assert.Equal(t, "User: Search Go\n\nAssistant: \n\nTool result (search): {\"results\":[]}\n\nUser: Thanks", got)
}

func TestParseResponse(t *testing.T) {
	client := NewClaudeCLI(WithModel("test-model"))

	t.Run("json result", func(t *testing.T) {
		resp := client.parseResponse([]byte(`{"type":"result","result":" hi \n","usage":{"input_tokens":4,"output_tokens":1}}`))
		assert.Equal(t, "hi", resp.Content)
		assert.Equal(t, TokenUsage{InputTokens: 4, OutputTokens: 1, TotalTokens: 5}, resp.Usage)
		assert.Equal(t, "test-model", resp.Model)
	})

	t.Run("plain text fallback", func(t *testing.T) {
		resp := client.parseResponse([]byte("  Line 1\nLine 2  \n"))
		assert.Equal(t, "Line 1\nLine 2", resp.Content)
		assert.Equal(t, "stop", resp.FinishReason)
	})
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		errMsg    string
		retryable bool
	}{
		{"rate limit exceeded", true},
		{"Rate Limit", true},
		{"request timeout", true},
		{"server overloaded", true},
		{"503 service unavailable", true},
		{"error 529", true},
		{"invalid request", false},
		{"authentication failed", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.errMsg, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableError(tt.errMsg))
		})
	}
}

// fakeClaude writes a shell script standing in for the claude binary.
func fakeClaude(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a unix shell")
	}
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestClaudeCLI_Complete(t *testing.T) {
	path := fakeClaude(t, `read prompt
echo "{\"type\":\"result\",\"result\":\"you said: $prompt\",\"usage\":{\"input_tokens\":2,\"output_tokens\":3}}"
`)
	client := NewClaudeCLI(WithClaudePath(path))

	resp, err := client.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("ping")}})
	require.NoError(t, err)
	assert.Equal(t, "you said: ping", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestClaudeCLI_CompleteFailure(t *testing.T) {
	path := fakeClaude(t, "echo 'API overloaded' >&2\nexit 1\n")
	client := NewClaudeCLI(WithClaudePath(path))

	_, err := client.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("x")}})

	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.True(t, llmErr.Retryable)
	assert.Contains(t, err.Error(), "API overloaded")
}

func TestClaudeCLI_Timeout(t *testing.T) {
	path := fakeClaude(t, "exec sleep 5\n")
	client := NewClaudeCLI(WithClaudePath(path), WithTimeout(50*time.Millisecond))

	_, err := client.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("x")}})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClaudeCLI_Stream(t *testing.T) {
	path := fakeClaude(t, `cat >/dev/null
echo '{"type":"system","subtype":"init"}'
echo '{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hel"}}}'
echo '{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"lo"}}}'
echo '{"type":"result","result":"Hello","usage":{"input_tokens":1,"output_tokens":2}}'
`)
	client := NewClaudeCLI(WithClaudePath(path))

	ch, err := client.Stream(context.Background(), CompletionRequest{Messages: []Message{UserMessage("hi")}})
	require.NoError(t, err)

	var content string
	var last StreamChunk
	for chunk := range ch {
		require.NoError(t, chunk.Error)
		content += chunk.Content
		last = chunk
	}
	assert.Equal(t, "Hello", content)
	assert.True(t, last.Done)
	require.NotNil(t, last.Usage)
	assert.Equal(t, 3, last.Usage.TotalTokens)
}

func TestClaudeCLI_StreamResultError(t *testing.T) {
	path := fakeClaude(t, `cat >/dev/null
echo '{"type":"result","is_error":true,"result":"rate limit reached"}'
`)
	client := NewClaudeCLI(WithClaudePath(path))

	ch, err := client.Stream(context.Background(), CompletionRequest{Messages: []Message{UserMessage("hi")}})
	require.NoError(t, err)

	var gotErr error
	for chunk := range ch {
		if chunk.Error != nil {
			gotErr = chunk.Error
		}
	}
	require.Error(t, gotErr)
	assert.True(t, IsRetryable(gotErr))
}

func TestClaudeCLI_NonExistentBinary(t *testing.T) {
	client := NewClaudeCLI(WithClaudePath("/nonexistent/path/to/claude"))
	req := CompletionRequest{Messages: []Message{UserMessage("test")}}

	_, err := client.Complete(context.Background(), req)
	assert.Error(t, err)

	_, err = client.Stream(context.Background(), req)
	assert.Error(t, err)
}
