package llm

import (
	"encoding/json"
	"time"
)

// CompletionRequest configures an LLM completion call.
type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`

	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Tools the model may call.
	Tools []Tool `json:"tools,omitempty"`
}

// Message is a conversation turn.
type Message struct {
	// ID identifies the message within a conversation. Left empty by
	// providers; prebuilt.AddMessages assigns one.
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name are set on tool results.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// UserMessage returns a user message with the given text.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage returns a system message with the given text.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// AssistantMessage returns an assistant message with the given text.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage returns the result of the tool call identified by callID.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// HasToolCalls reports whether the message requests any tool.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Tool defines an available tool for the LLM.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// CompletionResponse is the output of a completion call.
type CompletionResponse struct {
	Content      string        `json:"content"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	Usage        TokenUsage    `json:"usage"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Duration     time.Duration `json:"duration"`
}

// Message converts the response to an assistant message.
func (r *CompletionResponse) Message() Message {
	return Message{Role: RoleAssistant, Content: r.Content, ToolCalls: r.ToolCalls}
}

// ToolCall represents a tool invocation request from the LLM.
//
// Arguments is the JSON object text exactly as the model produced it; it
// may be malformed and is repaired before the tool runs.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add adds other to u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	Content string `json:"content,omitempty"`

	// ToolCalls carries complete calls. Providers assemble partial
	// deltas before sending them.
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	Usage     *TokenUsage `json:"usage,omitempty"` // Only set in final chunk
	Done      bool        `json:"done"`
	Error     error       `json:"-"` // Non-nil if streaming failed
}
