package console

import (
	"errors"
	"io"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/randalmurphal/graphchat/pkg/prebuilt"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
)

// Graph is what a Session talks to. *stategraph.CompiledGraph over
// prebuilt.MessagesState satisfies it.
type Graph interface {
	Stream(ctx stategraph.Context, input prebuilt.MessagesState, opts ...stategraph.RunOption) iter.Seq2[stategraph.Event[prebuilt.MessagesState], error]
}

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 100

// Session is the interactive chat front end for one graph. Build it with
// NewSession and release it with Close.
type Session struct {
	graph    Graph
	reader   LineReader
	live     LiveFactory
	out      io.Writer
	styles   Styles
	md       *markdown
	color    bool
	width    int
	threadID string
	runOpts  []stategraph.RunOption
	logger   *slog.Logger
	now      func() time.Time
	closers  []io.Closer
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	in          io.Reader
	out         io.Writer
	interactive *bool
	reader      LineReader
	live        LiveFactory
	width       int
	threadID    string
	runOpts     []stategraph.RunOption
	logger      *slog.Logger
	now         func() time.Time
	closers     []io.Closer
}

// WithInput sets where user input is read from (default os.Stdin).
func WithInput(r io.Reader) Option {
	return func(c *sessionConfig) { c.in = r }
}

// WithOutput sets where the UI is drawn (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(c *sessionConfig) { c.out = w }
}

// WithInteractive forces the terminal UI on or off instead of detecting
// whether input and output are terminals.
func WithInteractive(on bool) Option {
	return func(c *sessionConfig) { c.interactive = &on }
}

// WithLineReader replaces the prompt.
func WithLineReader(r LineReader) Option {
	return func(c *sessionConfig) { c.reader = r }
}

// WithLive replaces the streaming display.
func WithLive(f LiveFactory) Option {
	return func(c *sessionConfig) { c.live = f }
}

// WithWidth sets the width of panels and rules.
func WithWidth(n int) Option {
	return func(c *sessionConfig) { c.width = n }
}

// WithThreadID sets the conversation thread (default a fresh UUID).
func WithThreadID(id string) Option {
	return func(c *sessionConfig) { c.threadID = id }
}

// WithRunOptions adds options to every graph run.
func WithRunOptions(opts ...stategraph.RunOption) Option {
	return func(c *sessionConfig) { c.runOpts = append(c.runOpts, opts...) }
}

// WithLogger sets the logger handed to graph nodes.
func WithLogger(l *slog.Logger) Option {
	return func(c *sessionConfig) { c.logger = l }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *sessionConfig) { c.now = now }
}

// WithCloser registers a resource Close releases, such as a checkpoint
// store.
func WithCloser(cl io.Closer) Option {
	return func(c *sessionConfig) { c.closers = append(c.closers, cl) }
}

// NewSession creates a chat session for graph.
//
// When both input and output are terminals the session uses an animated
// display and a line editor; otherwise it falls back to plain line I/O.
func NewSession(graph Graph, opts ...Option) (*Session, error) {
	cfg := sessionConfig{
		in:     os.Stdin,
		out:    os.Stdout,
		width:  DefaultWidth,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.threadID == "" {
		cfg.threadID = uuid.NewString()
	}
	if cfg.width <= 0 {
		cfg.width = DefaultWidth
	}

	interactive := isTerminal(cfg.in) && isTerminal(cfg.out)
	if cfg.interactive != nil {
		interactive = *cfg.interactive
	}

	styles := DefaultStyles(cfg.out)

	mdStyle := "notty"
	if interactive {
		mdStyle = "dark"
	}
	md, err := newMarkdown(mdStyle, cfg.width-4)
	if err != nil {
		return nil, err
	}

	if cfg.reader == nil {
		if interactive {
			cfg.reader = NewTeaPrompt(cfg.in, cfg.out, styles)
		} else {
			cfg.reader = NewPlainPrompt(cfg.in, cfg.out)
		}
	}
	if cfg.live == nil {
		if interactive {
			cfg.live = TeaLive(cfg.in, cfg.out, styles)
		} else {
			cfg.live = PlainLive(cfg.out)
		}
	}

	return &Session{
		graph:    graph,
		reader:   cfg.reader,
		live:     cfg.live,
		out:      cfg.out,
		styles:   styles,
		md:       md,
		color:    interactive,
		width:    cfg.width,
		threadID: cfg.threadID,
		runOpts:  cfg.runOpts,
		logger:   cfg.logger,
		now:      cfg.now,
		closers:  cfg.closers,
	}, nil
}

// ThreadID returns the conversation thread every turn runs under.
func (s *Session) ThreadID() string { return s.threadID }

// Close releases the resources registered with WithCloser.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
