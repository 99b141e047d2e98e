package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/randalmurphal/graphchat/pkg/retry"
	"github.com/randalmurphal/graphchat/pkg/stategraph/registry"
)

// Provider names understood by InitChatModel.
const (
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google_genai"
	ProviderClaudeCLI = "claude-cli"
	ProviderMock      = "mock"
)

// ProviderConfig is what a ProviderFactory receives.
type ProviderConfig struct {
	Model      string
	Getenv     func(string) string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// ProviderFactory builds a Client for one provider.
type ProviderFactory func(ctx context.Context, cfg ProviderConfig) (Client, error)

var providers = registry.New[ProviderFactory]()

func init() {
	RegisterProvider(ProviderOpenAI, newOpenAIProvider)
	RegisterProvider(ProviderGoogle, newGeminiProvider, "gemini", "google", "google-genai")
	RegisterProvider(ProviderClaudeCLI, newClaudeCLIProvider, "claude", "claude_cli")
	RegisterProvider(ProviderMock, newMockProvider)
}

// RegisterProvider makes a provider available to InitChatModel under name
// and any aliases. Registering an existing name replaces it.
func RegisterProvider(name string, factory ProviderFactory, aliases ...string) {
	providers.Register(name, factory)
	for _, a := range aliases {
		providers.Alias(a, name)
	}
}

// Providers lists registered provider names.
func Providers() []string {
	return providers.Names()
}

// ParseModelSpec splits "provider:model". A bare model name gets its
// provider from its prefix: gpt-, chatgpt-, o1, o3 and o4 are openai,
// gemini is google_genai, claude is claude-cli.
func ParseModelSpec(spec string) (provider, model string, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", "", ErrModelNotConfigured
	}

	if p, m, ok := strings.Cut(spec, ":"); ok {
		p, m = strings.ToLower(strings.TrimSpace(p)), strings.TrimSpace(m)
		if p == "" || m == "" {
			return "", "", fmt.Errorf("%w: malformed model spec %q (want provider:model)", ErrUnknownProvider, spec)
		}
		return p, m, nil
	}

	lower := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lower, "gpt-"), strings.HasPrefix(lower, "chatgpt-"),
		strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "o4"):
		return ProviderOpenAI, spec, nil
	case strings.HasPrefix(lower, "gemini"):
		return ProviderGoogle, spec, nil
	case strings.HasPrefix(lower, "claude"):
		return ProviderClaudeCLI, spec, nil
	}
	return "", "", fmt.Errorf("%w: cannot infer provider for %q; use provider:model", ErrUnknownProvider, spec)
}

type initConfig struct {
	getenv     func(string) string
	httpClient *http.Client
	timeout    time.Duration
	retry      retry.Config
	system     string
}

// InitOption configures InitChatModel.
type InitOption func(*initConfig)

// WithGetenv replaces os.Getenv for API key and endpoint lookup.
func WithGetenv(fn func(string) string) InitOption {
	return func(c *initConfig) { c.getenv = fn }
}

// WithTransport sets the HTTP client for HTTP providers.
func WithTransport(client *http.Client) InitOption {
	return func(c *initConfig) { c.httpClient = client }
}

// WithRequestTimeout bounds each provider call.
func WithRequestTimeout(d time.Duration) InitOption {
	return func(c *initConfig) { c.timeout = d }
}

// WithRetryPolicy overrides retry.Default.
func WithRetryPolicy(cfg retry.Config) InitOption {
	return func(c *initConfig) { c.retry = cfg }
}

// WithSystem sets a system prompt on the returned model.
func WithSystem(prompt string) InitOption {
	return func(c *initConfig) { c.system = prompt }
}

// InitChatModel builds a ChatModel from a spec such as
// "openai:gpt-4o-mini", "google_genai:gemini-2.0-flash" or a bare
// "gpt-4o-mini". An empty spec fails with ErrModelNotConfigured, and a
// provider that is not registered fails with ErrUnknownProvider.
// Missing API keys are reported here, not on first use.
func InitChatModel(spec string, opts ...InitOption) (*ChatModel, error) {
	cfg := initConfig{getenv: os.Getenv, retry: retry.Default}
	for _, opt := range opts {
		opt(&cfg)
	}

	provider, model, err := ParseModelSpec(spec)
	if err != nil {
		return nil, err
	}

	factory, err := providers.Lookup(provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownProvider, err)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}

	client, err := factory(context.Background(), ProviderConfig{
		Model:      model,
		Getenv:     cfg.getenv,
		HTTPClient: httpClient,
		Timeout:    cfg.timeout,
	})
	if err != nil {
		return nil, err
	}

	return NewChatModel(client,
		WithName(provider+":"+model),
		WithRetry(cfg.retry),
		WithSystemPrompt(cfg.system),
	), nil
}

func newOpenAIProvider(_ context.Context, cfg ProviderConfig) (Client, error) {
	key := cfg.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, NewError("init", fmt.Errorf("openai: %w (OPENAI_API_KEY)", ErrMissingAPIKey), false)
	}
	return NewOpenAI(key, cfg.Model,
		WithBaseURL(cfg.Getenv("OPENAI_BASE_URL")),
		WithHTTPClient(cfg.HTTPClient),
	), nil
}

func newGeminiProvider(ctx context.Context, cfg ProviderConfig) (Client, error) {
	key := cfg.Getenv("GOOGLE_API_KEY")
	if key == "" {
		key = cfg.Getenv("GEMINI_API_KEY")
	}
	opts := []GeminiOption{WithGeminiHTTPClient(cfg.HTTPClient)}
	if base := cfg.Getenv("GEMINI_BASE_URL"); base != "" {
		opts = append(opts, WithGeminiBaseURL(base))
	}
	return NewGemini(ctx, key, cfg.Model, opts...)
}

func newClaudeCLIProvider(_ context.Context, cfg ProviderConfig) (Client, error) {
	opts := []ClaudeOption{WithModel(cfg.Model)}
	if path := cfg.Getenv("CLAUDE_CLI_PATH"); path != "" {
		opts = append(opts, WithClaudePath(path))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewClaudeCLI(opts...), nil
}

// newMockProvider answers every request with the model text, for offline
// runs: LLM_MODEL="mock:Hello there".
func newMockProvider(_ context.Context, cfg ProviderConfig) (Client, error) {
	return NewMockClient(cfg.Model), nil
}
