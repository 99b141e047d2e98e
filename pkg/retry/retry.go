package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Config configures Do.
type Config struct {
	// MaxAttempts counts the initial attempt.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	// Jitter is a random factor in [0, 1] applied to each backoff.
	Jitter float64

	// Retryable overrides IsRetryable.
	Retryable func(error) bool

	// OnRetry is called before sleeping ahead of attempt n+1.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// Default suits interactive chat: a couple of quick retries.
var Default = Config{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     8 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// Never disables retries.
var Never = Config{MaxAttempts: 1}

// Option adjusts a Config.
type Option func(*Config)

func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

func WithInitialBackoff(d time.Duration) Option {
	return func(c *Config) { c.InitialBackoff = d }
}

func WithMaxBackoff(d time.Duration) Option {
	return func(c *Config) { c.MaxBackoff = d }
}

func WithJitter(j float64) Option {
	return func(c *Config) { c.Jitter = j }
}

func WithRetryable(fn func(error) bool) Option {
	return func(c *Config) { c.Retryable = fn }
}

func WithOnRetry(fn func(attempt int, err error, backoff time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// NewConfig applies opts to Default.
func NewConfig(opts ...Option) Config {
	cfg := Default
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Do calls fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. Failures come back as *CategorizedError carrying
// the attempt count. Cancelling ctx stops both attempts and backoff sleeps.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := max(cfg.MaxAttempts, 1)
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, &CategorizedError{Err: err, Category: CategoryPermanent, Attempts: attempt - 1, Op: "context cancelled"}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, &CategorizedError{Err: err, Category: Categorize(err), Attempts: attempt}
		}
		if attempt == attempts {
			break
		}

		sleep := jittered(backoff, cfg.Jitter)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, sleep)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, &CategorizedError{Err: ctx.Err(), Category: CategoryPermanent, Attempts: attempt, Op: "context cancelled during backoff"}
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return zero, &CategorizedError{
		Err:      lastErr,
		Category: Categorize(lastErr),
		Attempts: attempts,
		Op:       "max retries exceeded",
	}
}

func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || base <= 0 {
		return base
	}
	delta := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + delta)
}
