package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ClaudeCLI implements Client by shelling out to the claude binary in
// print mode. The conversation is rendered as a transcript on stdin.
//
// Function tools from CompletionRequest.Tools are not forwarded; the CLI
// only knows its own built-in tools (see WithAllowedTools).
type ClaudeCLI struct {
	path         string
	model        string
	workdir      string
	timeout      time.Duration
	allowedTools []string
}

// ClaudeOption configures ClaudeCLI.
type ClaudeOption func(*ClaudeCLI)

// NewClaudeCLI creates a new Claude CLI client.
// Assumes "claude" is available in PATH unless overridden with WithClaudePath.
func NewClaudeCLI(opts ...ClaudeOption) *ClaudeCLI {
	c := &ClaudeCLI{
		path:    "claude",
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithClaudePath sets the path to the claude binary.
func WithClaudePath(path string) ClaudeOption {
	return func(c *ClaudeCLI) { c.path = path }
}

// WithModel sets the default model.
func WithModel(model string) ClaudeOption {
	return func(c *ClaudeCLI) { c.model = model }
}

// WithWorkdir sets the working directory for claude commands.
func WithWorkdir(dir string) ClaudeOption {
	return func(c *ClaudeCLI) { c.workdir = dir }
}

// WithTimeout bounds each invocation. Zero disables the limit.
func WithTimeout(d time.Duration) ClaudeOption {
	return func(c *ClaudeCLI) { c.timeout = d }
}

// WithAllowedTools sets the built-in tools claude may use.
func WithAllowedTools(tools []string) ClaudeOption {
	return func(c *ClaudeCLI) { c.allowedTools = tools }
}

func (c *ClaudeCLI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *ClaudeCLI) command(ctx context.Context, req CompletionRequest, format string, extra ...string) *exec.Cmd {
	args := append(c.buildArgs(req), "--output-format", format)
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdin = strings.NewReader(buildPrompt(req.Messages))
	cmd.WaitDelay = time.Second
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	return cmd
}

// Complete implements Client.
func (c *ClaudeCLI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	runCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	cmd := c.command(runCtx, req, "json")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, NewError("complete", ctx.Err(), false)
		}
		if runCtx.Err() != nil {
			return nil, NewError("complete", fmt.Errorf("%w after %s", ErrTimeout, c.timeout), true)
		}

		errMsg := strings.TrimSpace(stderr.String())
		return nil, NewError("complete", fmt.Errorf("%w: %s", err, errMsg), isRetryableError(errMsg))
	}

	resp := c.parseResponse(stdout.Bytes())
	resp.Duration = time.Since(start)
	return resp, nil
}

// Stream implements Client.
func (c *ClaudeCLI) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	runCtx, cancel := c.withTimeout(ctx)

	cmd := c.command(runCtx, req, "stream-json", "--verbose", "--include-partial-messages")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, NewError("stream", fmt.Errorf("create stdout pipe: %w", err), false)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, NewError("stream", fmt.Errorf("start command: %w", err), false)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer cancel()
		defer func() { _ = cmd.Wait() }()

		send := func(chunk StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				if !send(StreamChunk{Content: line + "\n"}) {
					return
				}
				continue
			}
			if event.Type == "stream_event" && event.Event != nil {
				event = *event.Event
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta != nil && event.Delta.Text != "" {
					if !send(StreamChunk{Content: event.Delta.Text}) {
						return
					}
				}
			case "result":
				if event.IsError {
					send(StreamChunk{Error: NewError("stream", fmt.Errorf("%s", event.Result), isRetryableError(event.Result))})
					return
				}
				usage := event.Usage.tokenUsage()
				send(StreamChunk{Done: true, Usage: &usage})
				return
			}
		}

		if err := scanner.Err(); err != nil {
			send(StreamChunk{Error: NewError("stream", fmt.Errorf("read output: %w", err), false)})
			return
		}
		if ctx.Err() != nil {
			return
		}
		if runCtx.Err() != nil {
			send(StreamChunk{Error: NewError("stream", ErrTimeout, true)})
			return
		}
		send(StreamChunk{Done: true})
	}()

	return ch, nil
}

// buildArgs constructs CLI flags from a request. The prompt goes to stdin.
func (c *ClaudeCLI) buildArgs(req CompletionRequest) []string {
	args := []string{"--print"}

	system := []string{}
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem && msg.Content != "" {
			system = append(system, msg.Content)
		}
	}
	if len(system) > 0 {
		args = append(args, "--system-prompt", strings.Join(system, "\n\n"))
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	for _, tool := range c.allowedTools {
		args = append(args, "--allowedTools", tool)
	}
	return args
}

// buildPrompt flattens the conversation. A lone user message is sent
// verbatim; longer histories become a labelled transcript.
func buildPrompt(messages []Message) string {
	var turns []Message
	for _, msg := range messages {
		if msg.Role != RoleSystem {
			turns = append(turns, msg)
		}
	}
	if len(turns) == 1 && turns[0].Role == RoleUser {
		return turns[0].Content
	}

	var b strings.Builder
	for i, msg := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case RoleUser:
			b.WriteString("User: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		case RoleTool:
			fmt.Fprintf(&b, "Tool result (%s): ", msg.Name)
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}

// parseResponse reads --output-format json output, falling back to plain
// text for older CLI versions.
func (c *ClaudeCLI) parseResponse(data []byte) *CompletionResponse {
	resp := &CompletionResponse{FinishReason: "stop", Model: c.model}

	var result streamEvent
	if err := json.Unmarshal(data, &result); err == nil && result.Type == "result" {
		resp.Content = strings.TrimSpace(result.Result)
		resp.Usage = result.Usage.tokenUsage()
		return resp
	}

	resp.Content = strings.TrimSpace(string(data))
	return resp
}

// isRetryableError checks if an error message indicates a transient error.
func isRetryableError(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	return strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "overloaded") ||
		strings.Contains(errLower, "503") ||
		strings.Contains(errLower, "529")
}

// streamEvent is one line of claude's JSON output. Partial-message lines
// wrap an API event in Event.
type streamEvent struct {
	Type    string       `json:"type"`
	Event   *streamEvent `json:"event,omitempty"`
	Delta   *streamDelta `json:"delta,omitempty"`
	Result  string       `json:"result,omitempty"`
	IsError bool         `json:"is_error,omitempty"`
	Usage   cliUsage     `json:"usage,omitempty"`
}

type streamDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type cliUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u cliUsage) tokenUsage() TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.InputTokens + u.OutputTokens,
	}
}
