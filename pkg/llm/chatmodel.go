package llm

import (
	"context"
	"slices"
	"strings"

	"github.com/randalmurphal/graphchat/pkg/retry"
)

// ChatModel is the model handle graph nodes call: a Client plus bound
// tools, an optional system prompt and a retry policy.
//
// ChatModel is immutable; BindTools returns a copy.
type ChatModel struct {
	client Client
	name   string
	system string
	tools  []Tool
	retry  retry.Config
}

// ChatModelOption configures a ChatModel.
type ChatModelOption func(*ChatModel)

// WithSystemPrompt prepends a system prompt to every request.
func WithSystemPrompt(prompt string) ChatModelOption {
	return func(m *ChatModel) { m.system = prompt }
}

// WithRetry sets the retry policy for opening requests.
func WithRetry(cfg retry.Config) ChatModelOption {
	return func(m *ChatModel) { m.retry = cfg }
}

// WithName sets the display name, normally "provider:model".
func WithName(name string) ChatModelOption {
	return func(m *ChatModel) { m.name = name }
}

// NewChatModel wraps client.
func NewChatModel(client Client, opts ...ChatModelOption) *ChatModel {
	m := &ChatModel{
		client: client,
		name:   "custom",
		retry:  retry.Default,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.retry.Retryable == nil {
		m.retry.Retryable = IsRetryable
	}
	return m
}

// Name returns the model's display name.
func (m *ChatModel) Name() string { return m.name }

// Tools returns the bound tool definitions.
func (m *ChatModel) Tools() []Tool { return slices.Clone(m.tools) }

// BindTools returns a copy of m that offers tools to the model on every
// call. Tools with the same name replace earlier ones.
func (m *ChatModel) BindTools(tools ...Tool) *ChatModel {
	cp := *m
	cp.tools = slices.Clone(m.tools)
	for _, t := range tools {
		idx := slices.IndexFunc(cp.tools, func(have Tool) bool { return have.Name == t.Name })
		if idx >= 0 {
			cp.tools[idx] = t
		} else {
			cp.tools = append(cp.tools, t)
		}
	}
	return &cp
}

func (m *ChatModel) request(messages []Message) CompletionRequest {
	return CompletionRequest{
		SystemPrompt: m.system,
		Messages:     messages,
		Tools:        m.tools,
	}
}

// Invoke sends the conversation and returns the assistant's reply.
func (m *ChatModel) Invoke(ctx context.Context, messages []Message) (Message, error) {
	req := m.request(messages)
	resp, err := retry.Do(ctx, m.retry, func(ctx context.Context) (*CompletionResponse, error) {
		return m.client.Complete(ctx, req)
	})
	if err != nil {
		return Message{}, err
	}
	return resp.Message(), nil
}

// Stream sends the conversation and calls onChunk for each text fragment
// as it arrives. It returns the assembled reply, including any tool calls.
// onChunk may be nil.
//
// Opening the stream is retried; a failure mid-stream is returned as is.
func (m *ChatModel) Stream(ctx context.Context, messages []Message, onChunk func(string)) (Message, error) {
	req := m.request(messages)
	ch, err := retry.Do(ctx, m.retry, func(ctx context.Context) (<-chan StreamChunk, error) {
		return m.client.Stream(ctx, req)
	})
	if err != nil {
		return Message{}, err
	}

	var content strings.Builder
	var calls []ToolCall
	var streamErr error
	for chunk := range ch {
		if chunk.Error != nil {
			if streamErr == nil {
				streamErr = chunk.Error
			}
			continue
		}
		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			if onChunk != nil {
				onChunk(chunk.Content)
			}
		}
		calls = append(calls, chunk.ToolCalls...)
	}

	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}
	msg := Message{Role: RoleAssistant, Content: content.String(), ToolCalls: calls}
	return msg, streamErr
}
