package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a scripted Client for tests and offline demos.
//
// Responses are returned in order and cycle when exhausted. Stream splits
// the content into word chunks and delivers tool calls in the final chunk.
type MockClient struct {
	mu           sync.Mutex
	responses    []CompletionResponse
	index        int
	err          error
	completeFunc func(context.Context, CompletionRequest) (*CompletionResponse, error)
	streamFunc   func(context.Context, CompletionRequest) (<-chan StreamChunk, error)

	// Calls records every request received.
	Calls []CompletionRequest
}

// NewMockClient creates a mock that always answers with response.
func NewMockClient(response string) *MockClient {
	return &MockClient{
		responses: []CompletionResponse{{Content: response}},
	}
}

// WithResponses replaces the script with plain-text answers.
func (m *MockClient) WithResponses(contents ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = m.responses[:0]
	for _, c := range contents {
		m.responses = append(m.responses, CompletionResponse{Content: c})
	}
	m.index = 0
	return m
}

// WithReplies replaces the script with full responses, which may carry
// tool calls.
func (m *MockClient) WithReplies(replies ...CompletionResponse) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]CompletionResponse(nil), replies...)
	m.index = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithCompleteFunc delegates Complete (and the default Stream) to fn.
func (m *MockClient) WithCompleteFunc(fn func(context.Context, CompletionRequest) (*CompletionResponse, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// WithStreamFunc delegates Stream to fn.
func (m *MockClient) WithStreamFunc(fn func(context.Context, CompletionRequest) (<-chan StreamChunk, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamFunc = fn
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn, err := m.completeFunc, m.err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, req)
	}
	return m.next(req), nil
}

func (m *MockClient) next(req CompletionRequest) *CompletionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	var resp CompletionResponse
	if len(m.responses) > 0 {
		resp = m.responses[m.index%len(m.responses)]
		m.index++
	}
	resp.ToolCalls = append([]ToolCall(nil), resp.ToolCalls...)

	if resp.FinishReason == "" {
		resp.FinishReason = "stop"
		if len(resp.ToolCalls) > 0 {
			resp.FinishReason = "tool_calls"
		}
	}
	if resp.Model == "" {
		resp.Model = "mock"
	}
	if resp.Usage.TotalTokens == 0 {
		in := 0
		for _, msg := range req.Messages {
			in += approxTokens(msg.Content)
		}
		resp.Usage = TokenUsage{
			InputTokens:  max(in, 1),
			OutputTokens: max(approxTokens(resp.Content), 1),
		}
		resp.Usage.TotalTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	}
	return &resp
}

func approxTokens(s string) int {
	return len(strings.Fields(s))
}

// Stream implements Client.
func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	m.mu.Lock()
	streamFn := m.streamFunc
	m.mu.Unlock()
	if streamFn != nil {
		m.mu.Lock()
		m.Calls = append(m.Calls, req)
		m.mu.Unlock()
		return streamFn(ctx, req)
	}

	resp, err := m.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	var pieces []string
	if resp.Content != "" {
		pieces = strings.SplitAfter(resp.Content, " ")
	}

	// Sized so the producer never blocks on an abandoned reader.
	ch := make(chan StreamChunk, len(pieces)+1)
	go func() {
		defer close(ch)
		for _, p := range pieces {
			if err := ctx.Err(); err != nil {
				ch <- StreamChunk{Error: err}
				return
			}
			ch <- StreamChunk{Content: p}
		}
		usage := resp.Usage
		ch <- StreamChunk{ToolCalls: resp.ToolCalls, Usage: &usage, Done: true}
	}()
	return ch, nil
}

// CallCount returns the number of requests received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil.
func (m *MockClient) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	last := m.Calls[len(m.Calls)-1]
	return &last
}

// Reset clears recorded calls and rewinds the script.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.index = 0
}
