package tool

import (
	"net/http"
	"os"
	"time"

	"github.com/randalmurphal/graphchat/pkg/retry"
)

// Option configures the HTTP-backed tools.
type Option func(*options)

type options struct {
	name        string
	apiKey      string
	baseURL     string
	client      *http.Client
	getenv      func(string) string
	userAgent   string
	maxBodySize int64
	retry       retry.Config
}

func defaultOptions() options {
	return options{
		client:      &http.Client{Timeout: DefaultTimeout},
		getenv:      os.Getenv,
		userAgent:   DefaultUserAgent,
		maxBodySize: MaxBodySize,
		retry:       retry.Default,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

const (
	// DefaultTimeout bounds a single HTTP request made by a tool.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every tool request.
	DefaultUserAgent = "graphchat/1.0"

	// MaxBodySize caps how much of a response a tool reads (10MB).
	MaxBodySize = 10 * 1024 * 1024
)

// WithName overrides the tool name the model sees.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithAPIKey sets the API key instead of reading it from the environment.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the tool at a different endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithGetenv replaces os.Getenv for API key lookup.
func WithGetenv(getenv func(string) string) Option {
	return func(o *options) {
		if getenv != nil {
			o.getenv = getenv
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithMaxBodySize caps the response size in bytes.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodySize = n
		}
	}
}

// WithRetry sets the retry policy for transient HTTP failures.
func WithRetry(cfg retry.Config) Option {
	return func(o *options) { o.retry = cfg }
}
