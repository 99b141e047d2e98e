// Package lessons holds the tutorial graphs and the glue that runs them:
// a basic chatbot, a chatbot with web search, a chatbot with memory and a
// token streaming demo.
package lessons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randalmurphal/graphchat/pkg/console"
	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
	"github.com/randalmurphal/graphchat/pkg/stategraph/config"
	"github.com/randalmurphal/graphchat/pkg/stategraph/registry"
	"github.com/randalmurphal/graphchat/pkg/tool"
)

// Env is what a lesson runs with.
type Env struct {
	Settings config.Settings
	Model    *llm.ChatModel
	Logger   *slog.Logger

	In  io.Reader
	Out io.Writer

	// Tools replaces the default tool set of the tools lesson.
	Tools []tool.Tool

	// SessionOptions are applied last to chat sessions.
	SessionOptions []console.Option
}

// Lesson is one runnable tutorial step.
type Lesson struct {
	Name    string
	Summary string
	Run     func(ctx context.Context, env Env) error
}

var lessons = registry.New[Lesson]()

func init() {
	for _, l := range []Lesson{
		{Name: "chatbot", Summary: "Chat with a single-node graph", Run: runChatbot},
		{Name: "tools", Summary: "Chat with a model that can search the web", Run: runTools},
		{Name: "memory", Summary: "Chat with a graph that remembers the conversation", Run: runMemory},
		{Name: "stream", Summary: "Stream a joke token by token", Run: runStream},
	} {
		lessons.Register(l.Name, l)
	}
	lessons.Alias("1_1_chatbot", "chatbot")
	lessons.Alias("1_2_tools", "tools")
	lessons.Alias("1_3_memory", "memory")
	lessons.Alias("streaming", "stream")
}

// Lookup finds a lesson by name or by its tutorial file name
// ("1_2_tools").
func Lookup(name string) (Lesson, error) {
	l, err := lessons.Lookup(name)
	if err != nil {
		return Lesson{}, fmt.Errorf("lesson: %w", err)
	}
	return l, nil
}

// All returns every lesson sorted by name.
func All() []Lesson {
	names := lessons.Names()
	out := make([]Lesson, 0, len(names))
	for _, name := range names {
		l, _ := lessons.Get(name)
		out = append(out, l)
	}
	return out
}

// Start loads settings, builds the model and runs the named lesson reading
// from in and writing to out.
func Start(ctx context.Context, name string, in io.Reader, out io.Writer) (err error) {
	l, err := Lookup(name)
	if err != nil {
		return err
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	env, closeLog, err := Setup(settings)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeLog())
	}()
	env.In, env.Out = in, out

	env.Logger.Info("lesson started", "lesson", l.Name)
	if err := l.Run(ctx, env); err != nil {
		env.Logger.Error("lesson failed", "lesson", l.Name, "error", err)
		return err
	}
	return nil
}

// Setup builds the logger and chat model described by settings. The
// returned close func releases the log file.
func Setup(settings config.Settings, opts ...llm.InitOption) (Env, func() error, error) {
	logger, closeLog, err := NewLogger(settings)
	if err != nil {
		return Env{}, nil, err
	}

	initOpts := append([]llm.InitOption{llm.WithRequestTimeout(settings.RequestTimeout)}, opts...)
	model, err := llm.InitChatModel(settings.Model, initOpts...)
	if err != nil {
		_ = closeLog()
		return Env{}, nil, fmt.Errorf("init chat model: %w", err)
	}
	logger.Info("chat model ready", "model", model.Name())

	return Env{
		Settings: settings,
		Model:    model,
		Logger:   logger,
		In:       os.Stdin,
		Out:      os.Stdout,
	}, closeLog, nil
}

// NewLogger returns a text logger writing to settings.LogFile at
// settings.LogLevel. Without a log file everything is discarded: the
// terminal belongs to the chat UI.
func NewLogger(settings config.Settings) (*slog.Logger, func() error, error) {
	var level slog.Level
	if settings.LogLevel != "" {
		if err := level.UnmarshalText([]byte(settings.LogLevel)); err != nil {
			return nil, nil, fmt.Errorf("log_level: %w", err)
		}
	}

	if settings.LogFile == "" {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}

	f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, f.Close, nil
}

func (e Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// RunOptions maps settings onto graph run options.
func (e Env) RunOptions() []stategraph.RunOption {
	opts := []stategraph.RunOption{
		stategraph.WithObservabilityLogger(e.logger()),
		stategraph.WithMetrics(e.Settings.Metrics),
		stategraph.WithTracing(e.Settings.Tracing),
	}
	if n := e.Settings.MaxIterations; n > 0 && n <= stategraph.MaxIterationsLimit {
		opts = append(opts, stategraph.WithMaxIterations(n))
	}
	return opts
}

func (e Env) output() io.Writer {
	if e.Out != nil {
		return e.Out
	}
	return os.Stdout
}

// chat runs the interactive loop over graph. closers are released when
// the loop ends.
func (e Env) chat(ctx context.Context, graph console.Graph, closers ...io.Closer) (err error) {
	opts := []console.Option{
		console.WithOutput(e.output()),
		console.WithLogger(e.logger()),
		console.WithRunOptions(e.RunOptions()...),
	}
	if e.In != nil {
		opts = append(opts, console.WithInput(e.In))
	}
	if e.Settings.ThreadID != "" {
		opts = append(opts, console.WithThreadID(e.Settings.ThreadID))
	}
	for _, c := range closers {
		opts = append(opts, console.WithCloser(c))
	}
	opts = append(opts, e.SessionOptions...)

	sess, err := console.NewSession(graph, opts...)
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return err
	}
	defer func() {
		err = errors.Join(err, sess.Close())
	}()

	e.logger().Info("chat session started", "thread_id", sess.ThreadID())
	return sess.Run(ctx)
}
