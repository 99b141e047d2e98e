package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Gemini implements Client with the Google Gen AI SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// GeminiOption configures the underlying genai client.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at another endpoint (tests, proxies).
func WithGeminiBaseURL(url string) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

// WithGeminiHTTPClient sets the HTTP client used by the SDK.
func WithGeminiHTTPClient(c *http.Client) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPClient = c
	}
}

// NewGemini creates a Gemini API client for model.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, NewError("init", fmt.Errorf("gemini: %w (GOOGLE_API_KEY or GEMINI_API_KEY)", ErrMissingAPIKey), false)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, NewError("init", fmt.Errorf("create genai client: %w", err), false)
	}
	return &Gemini{client: client, model: model}, nil
}

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	model, contents, cfg := g.buildRequest(req)

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, geminiError(ctx, "complete", err)
	}

	out := fromGenaiResponse(resp)
	out.Model = model
	out.Duration = time.Since(start)
	return out, nil
}

// Stream implements Client.
func (g *Gemini) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model, contents, cfg := g.buildRequest(req)

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)

		send := func(chunk StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var calls []ToolCall
		var usage *TokenUsage
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				send(StreamChunk{Error: geminiError(ctx, "stream", err)})
				return
			}

			part := fromGenaiResponse(resp)
			calls = append(calls, part.ToolCalls...)
			if part.Usage.TotalTokens > 0 {
				u := part.Usage
				usage = &u
			}
			if part.Content != "" {
				if !send(StreamChunk{Content: part.Content}) {
					return
				}
			}
		}

		send(StreamChunk{ToolCalls: calls, Usage: usage, Done: true})
	}()

	return ch, nil
}

func geminiError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return NewError(op, ctx.Err(), false)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return httpError(op, apiErr.Code, apiErr.Message, "gemini")
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return httpError(op, apiErrPtr.Code, apiErrPtr.Message, "gemini")
	}
	return NewError(op, err, IsRetryable(err))
}

func (g *Gemini) buildRequest(req CompletionRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := g.model
	if req.Model != "" {
		model = req.Model
	}

	cfg := &genai.GenerateContentConfig{}
	if req.Temperature != 0 {
		t := float32(req.Temperature)
		cfg.Temperature = &t
	}

	system := req.SystemPrompt
	var contents []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case RoleAssistant:
			parts := []*genai.Part{}
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: argsMap(tc.Arguments),
				}})
			}
			contents = append(contents, &genai.Content{Role: string(genai.RoleModel), Parts: parts})
		case RoleTool:
			contents = append(contents, &genai.Content{
				Role: string(genai.RoleUser),
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.Name,
					Response: map[string]any{"output": msg.Content},
				}}},
			})
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decl := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
			if len(t.Parameters) > 0 {
				decl.ParametersJsonSchema = t.Parameters
			}
			decls = append(decls, decl)
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return model, contents, cfg
}

// argsMap decodes tool-call arguments for the SDK. Undecodable text is
// passed through under "input".
func argsMap(args string) map[string]any {
	if args == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(args), &m); err != nil {
		return map[string]any{"input": args}
	}
	return m
}

func fromGenaiResponse(resp *genai.GenerateContentResponse) *CompletionResponse {
	out := &CompletionResponse{FinishReason: "stop"}
	if resp == nil {
		return out
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = TokenUsage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != "" {
		out.FinishReason = string(cand.FinishReason)
	}

	for _, part := range cand.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			out.Content += part.Text
		}
		if fc := part.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args := []byte("{}")
			if fc.Args != nil {
				args, _ = json.Marshal(fc.Args)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: fc.Name, Arguments: string(args)})
		}
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = "tool_calls"
	}
	return out
}
