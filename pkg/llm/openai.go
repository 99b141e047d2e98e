package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// DefaultOpenAIBaseURL is used when no base URL is configured.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

const maxErrorBody = 64 * 1024

// OpenAI implements Client against the chat completions endpoint. Any
// OpenAI-compatible server works through WithBaseURL.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// OpenAIOption configures OpenAI.
type OpenAIOption func(*OpenAI)

// NewOpenAI creates a client for model.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		apiKey:  apiKey,
		baseURL: DefaultOpenAIBaseURL,
		model:   model,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBaseURL overrides the API root, e.g. for a proxy or a test server.
func WithBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) {
		if url != "" {
			o.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) {
		if c != nil {
			o.client = c
		}
	}
}

func (o *OpenAI) endpoint() string {
	return o.baseURL + "/chat/completions"
}

// Complete implements Client.
func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := o.post(ctx, "complete", o.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, NewError("complete", fmt.Errorf("decode response: %w", err), false)
	}
	if len(out.Choices) == 0 {
		return nil, NewError("complete", errors.New("response has no choices"), false)
	}

	choice := out.Choices[0]
	result := &CompletionResponse{
		Content:      choice.Message.Content,
		Model:        out.Model,
		FinishReason: choice.FinishReason,
		Duration:     time.Since(start),
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if out.Usage != nil {
		result.Usage = out.Usage.tokenUsage()
	}
	return result, nil
}

// Stream implements Client. Tool-call fragments are assembled and sent
// whole in the final chunk.
func (o *OpenAI) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	resp, err := o.post(ctx, "stream", o.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		send := func(chunk StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		reader := newSSEReader(resp.Body)
		calls := map[int]*ToolCall{}
		var usage *TokenUsage

		for {
			payload, err := reader.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				}
				send(StreamChunk{Error: NewError("stream", err, false)})
				return
			}

			var event chatStreamChunk
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				send(StreamChunk{Error: NewError("stream", fmt.Errorf("decode chunk: %w", err), false)})
				return
			}

			if event.Usage != nil {
				u := event.Usage.tokenUsage()
				usage = &u
			}
			for _, choice := range event.Choices {
				for _, part := range choice.Delta.ToolCalls {
					call, ok := calls[part.Index]
					if !ok {
						call = &ToolCall{}
						calls[part.Index] = call
					}
					if part.ID != "" {
						call.ID = part.ID
					}
					if part.Function.Name != "" {
						call.Name = part.Function.Name
					}
					call.Arguments += part.Function.Arguments
				}
				if choice.Delta.Content != "" {
					if !send(StreamChunk{Content: choice.Delta.Content}) {
						return
					}
				}
			}
		}

		send(StreamChunk{ToolCalls: orderedCalls(calls), Usage: usage, Done: true})
	}()

	return ch, nil
}

func orderedCalls(calls map[int]*ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	idx := make([]int, 0, len(calls))
	for i := range calls {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := make([]ToolCall, 0, len(idx))
	for _, i := range idx {
		out = append(out, *calls[i])
	}
	return out
}

// post sends body and returns the response for 2xx statuses. The caller
// closes the body.
func (o *OpenAI) post(ctx context.Context, op string, body chatRequest) (*http.Response, error) {
	if o.apiKey == "" {
		return nil, NewError(op, fmt.Errorf("openai: %w (OPENAI_API_KEY)", ErrMissingAPIKey), false)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, NewError(op, fmt.Errorf("marshal request: %w", err), false)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint(), bytes.NewReader(data))
	if err != nil {
		return nil, NewError(op, fmt.Errorf("create request: %w", err), false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if body.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError(op, ctx.Err(), false)
		}
		return nil, NewError(op, fmt.Errorf("send request: %w", err), true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, httpError(op, resp.StatusCode, errorMessage(raw), o.endpoint())
	}
	return resp, nil
}

// errorMessage extracts error.message from an API error body.
func errorMessage(body []byte) string {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func (o *OpenAI) buildRequest(req CompletionRequest, stream bool) chatRequest {
	out := chatRequest{
		Model:  o.model,
		Stream: stream,
	}
	if req.Model != "" {
		out.Model = req.Model
	}
	if stream {
		out.StreamOptions = &chatStreamOptions{IncludeUsage: true}
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature != 0 {
		t := req.Temperature
		out.Temperature = &t
	}

	if req.SystemPrompt != "" {
		out.Messages = append(out.Messages, chatMessage{Role: string(RoleSystem), Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		cm := chatMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			call := chatToolCall{ID: tc.ID, Type: "function"}
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
			cm.ToolCalls = append(cm.ToolCalls, call)
		}
		out.Messages = append(out.Messages, cm)
	}

	for _, t := range req.Tools {
		params := t.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// Wire types for /chat/completions.

type chatRequest struct {
	Model         string             `json:"model"`
	Messages      []chatMessage      `json:"messages"`
	Tools         []chatTool         `json:"tools,omitempty"`
	MaxTokens     int                `json:"max_tokens,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	StreamOptions *chatStreamOptions `json:"stream_options,omitempty"`
}

type chatStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatToolCall struct {
	Index    int    `json:"index,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *chatUsage) tokenUsage() TokenUsage {
	return TokenUsage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}
