package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"
)

// Live is the display of one turn while the response streams in.
type Live interface {
	// Update replaces the displayed frame.
	Update(view string)

	// Stop ends the display. With keep the last frame stays on screen,
	// otherwise it is cleared.
	Stop(keep bool) error
}

// LiveFactory starts a Live for a turn. The display calls cancel when the
// user interrupts the turn.
type LiveFactory func(ctx context.Context, cancel context.CancelFunc) (Live, error)

// ThinkingText is shown next to the spinner until the first text arrives.
const ThinkingText = "Thinking…"

type frameMsg string

type stopMsg struct{ keep bool }

// liveModel shows a spinner until the first frame arrives. Ctrl-C cancels
// the turn and clears the display.
type liveModel struct {
	spinner spinner.Model
	frame   string
	cancel  context.CancelFunc
	done    bool
	cleared bool
}

func newLiveModel(style lipgloss.Style, cancel context.CancelFunc) liveModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = style
	return liveModel{spinner: sp, cancel: cancel}
}

func (m liveModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
			}
			m.done, m.cleared = true, true
			return m, tea.Quit
		}
		return m, nil

	case frameMsg:
		m.frame = string(msg)
		return m, nil

	case stopMsg:
		m.done = true
		m.cleared = !msg.keep
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m liveModel) View() string {
	if m.cleared {
		return ""
	}
	if m.frame == "" {
		if m.done {
			return ""
		}
		return m.spinner.View() + " " + ThinkingText
	}
	return m.frame
}

// teaLive runs liveModel in a bubbletea program on its own goroutine.
type teaLive struct {
	program *tea.Program
	group   *errgroup.Group
	once    sync.Once
	err     error
}

// TeaLive returns a LiveFactory drawing an animated display on out and
// reading keys from in. A nil in disables key handling.
func TeaLive(in io.Reader, out io.Writer, styles Styles) LiveFactory {
	return func(_ context.Context, cancel context.CancelFunc) (Live, error) {
		opts := []tea.ProgramOption{
			tea.WithOutput(out),
			tea.WithInput(in),
			tea.WithoutSignalHandler(),
		}
		p := tea.NewProgram(newLiveModel(styles.Spinner, cancel), opts...)

		g := new(errgroup.Group)
		g.Go(func() error {
			_, err := p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
		return &teaLive{program: p, group: g}, nil
	}
}

func (l *teaLive) Update(view string) {
	l.program.Send(frameMsg(view))
}

func (l *teaLive) Stop(keep bool) error {
	l.once.Do(func() {
		l.program.Send(stopMsg{keep: keep})
		if err := l.group.Wait(); err != nil {
			l.err = fmt.Errorf("live display: %w", err)
		}
	})
	return l.err
}

// plainLive is used when output is not a terminal: nothing animates, the
// final frame is printed once. SIGINT cancels the turn.
type plainLive struct {
	out   io.Writer
	mu    sync.Mutex
	frame string
	sigs  chan os.Signal
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// PlainLive returns a LiveFactory that prints only the final frame to out.
func PlainLive(out io.Writer) LiveFactory {
	return func(ctx context.Context, cancel context.CancelFunc) (Live, error) {
		l := &plainLive{
			out:  out,
			sigs: make(chan os.Signal, 1),
			quit: make(chan struct{}),
		}
		signal.Notify(l.sigs, os.Interrupt)

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			select {
			case <-l.sigs:
				cancel()
			case <-ctx.Done():
			case <-l.quit:
			}
		}()
		return l, nil
	}
}

func (l *plainLive) Update(view string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frame = view
}

func (l *plainLive) Stop(keep bool) error {
	var err error
	l.once.Do(func() {
		signal.Stop(l.sigs)
		close(l.quit)
		l.wg.Wait()

		l.mu.Lock()
		frame := l.frame
		l.mu.Unlock()
		if keep && frame != "" {
			_, err = fmt.Fprintln(l.out, frame)
		}
	})
	return err
}
