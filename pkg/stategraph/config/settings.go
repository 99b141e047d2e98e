package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvConfigFile names the settings file to load.
	EnvConfigFile = "GRAPHCHAT_CONFIG"

	// DefaultConfigFile is read from the working directory when
	// EnvConfigFile is unset.
	DefaultConfigFile = "graphchat.yaml"

	// DefaultEnvFile is the dotenv file loaded into the process environment.
	DefaultEnvFile = ".env"
)

// Settings is the resolved application configuration.
type Settings struct {
	// Model is a "provider:model" identifier, e.g. "openai:gpt-4o-mini".
	Model string

	// SearchMaxResults bounds web search results per query.
	SearchMaxResults int

	// CheckpointDB selects the conversation store (see checkpoint.Open).
	// Empty keeps memory in process.
	CheckpointDB string

	// ThreadID resumes a stored conversation. Empty starts a new one.
	ThreadID string

	LogLevel string
	LogFile  string

	// MaxIterations bounds nodes executed per turn.
	MaxIterations int

	// RequestTimeout bounds each model or tool HTTP request.
	RequestTimeout time.Duration

	// Metrics and Tracing enable OpenTelemetry for graph runs.
	Metrics bool
	Tracing bool
}

// envKeys maps settings keys to environment variables.
var envKeys = map[string]string{
	"model":              "LLM_MODEL",
	"search_max_results": "GRAPHCHAT_SEARCH_MAX_RESULTS",
	"checkpoint_db":      "GRAPHCHAT_CHECKPOINT_DB",
	"thread_id":          "GRAPHCHAT_THREAD_ID",
	"log_level":          "GRAPHCHAT_LOG_LEVEL",
	"log_file":           "GRAPHCHAT_LOG_FILE",
	"max_iterations":     "GRAPHCHAT_MAX_ITERATIONS",
	"request_timeout":    "GRAPHCHAT_REQUEST_TIMEOUT",
	"metrics":            "GRAPHCHAT_METRICS",
	"tracing":            "GRAPHCHAT_TRACING",
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		SearchMaxResults: 2,
		LogLevel:         "info",
		MaxIterations:    25,
		RequestTimeout:   60 * time.Second,
	}
}

// Load resolves settings from, in increasing priority: defaults, the
// settings file ($GRAPHCHAT_CONFIG, else ./graphchat.yaml if present),
// ./.env, and the process environment. Variables already set in the
// environment win over .env entries.
func Load() (Settings, error) {
	path := os.Getenv(EnvConfigFile)
	required := path != ""
	if !required {
		path = DefaultConfigFile
	}
	return LoadFrom(path, required, DefaultEnvFile)
}

// LoadFrom is Load with explicit file locations. A missing settings file is
// an error only when required; a missing env file is ignored.
func LoadFrom(path string, required bool, envFile string) (Settings, error) {
	s := Defaults()

	layered := New(nil)
	if path != "" {
		fileCfg, err := FromFile(path)
		switch {
		case err == nil:
			layered = layered.Merge(fileCfg)
		case !required && errors.Is(err, fs.ErrNotExist):
		default:
			return s, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return s, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	layered = layered.Merge(FromEnv(envKeys))
	s.apply(layered)

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) apply(c Config) {
	s.Model = c.String("model", s.Model)
	s.SearchMaxResults = c.Int("search_max_results", s.SearchMaxResults)
	s.CheckpointDB = c.String("checkpoint_db", s.CheckpointDB)
	s.ThreadID = c.String("thread_id", s.ThreadID)
	s.LogLevel = c.String("log_level", s.LogLevel)
	s.LogFile = c.String("log_file", s.LogFile)
	s.MaxIterations = c.Int("max_iterations", s.MaxIterations)
	s.RequestTimeout = c.Duration("request_timeout", s.RequestTimeout)
	s.Metrics = c.Bool("metrics", s.Metrics)
	s.Tracing = c.Bool("tracing", s.Tracing)
}

// Validate checks value ranges. A missing model is not an error here; the
// model factory reports it when a lesson needs one.
func (s Settings) Validate() error {
	var errs []error
	if s.SearchMaxResults < 1 {
		errs = append(errs, fmt.Errorf("search_max_results must be >= 1, got %d", s.SearchMaxResults))
	}
	if s.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("max_iterations must be >= 1, got %d", s.MaxIterations))
	}
	if s.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", s.RequestTimeout))
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s.LogLevel))
	}
	return errors.Join(errs...)
}
