package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned by LineReader when the user presses Ctrl-C.
var ErrInterrupted = errors.New("input interrupted")

// Completions are offered while typing at the prompt.
var Completions = []string{"exit", "quit", "help", "list tools"}

// LineReader reads one line of user input.
//
// ReadLine returns ErrInterrupted on Ctrl-C and io.EOF on Ctrl-D or end of
// input.
type LineReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// history keeps submitted lines for up/down recall.
type history struct {
	mu    sync.Mutex
	lines []string
}

func (h *history) add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.lines); n > 0 && h.lines[n-1] == line {
		return
	}
	h.lines = append(h.lines, line)
}

func (h *history) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

// promptModel is a single-line editor with history and completion.
type promptModel struct {
	input   textinput.Model
	history []string
	pos     int // index into history; len(history) is the fresh line
	draft   string
	err     error
	done    bool
}

func newPromptModel(prompt string, hist []string, styles Styles) promptModel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.PromptStyle = styles.You
	ti.ShowSuggestions = true
	ti.SetSuggestions(Completions)
	ti.CharLimit = 0
	ti.Focus()
	return promptModel{input: ti, history: hist, pos: len(hist)}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC:
			m.err, m.done = ErrInterrupted, true
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.err, m.done = io.EOF, true
				return m, tea.Quit
			}
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyUp:
			m.recall(-1)
			return m, nil
		case tea.KeyDown:
			m.recall(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// recall moves through history; stepping past the newest entry restores
// the line being typed.
func (m *promptModel) recall(step int) {
	next := m.pos + step
	if next < 0 || next > len(m.history) {
		return
	}
	if m.pos == len(m.history) {
		m.draft = m.input.Value()
	}
	m.pos = next
	if m.pos == len(m.history) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[m.pos])
	}
	m.input.CursorEnd()
}

func (m promptModel) View() string {
	if m.done {
		if m.err != nil {
			return ""
		}
		return m.input.Prompt + m.input.Value() + "\n"
	}
	return m.input.View()
}

// teaPrompt reads lines with an interactive editor.
type teaPrompt struct {
	in      io.Reader
	out     io.Writer
	styles  Styles
	history history
}

// NewTeaPrompt returns a LineReader with history (up/down) and completion
// of Completions (tab).
func NewTeaPrompt(in io.Reader, out io.Writer, styles Styles) LineReader {
	return &teaPrompt{in: in, out: out, styles: styles}
}

func (p *teaPrompt) ReadLine(ctx context.Context, prompt string) (string, error) {
	model := newPromptModel(prompt, p.history.snapshot(), p.styles)
	prog := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
		tea.WithoutSignalHandler(),
	)

	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("read input: %w", err)
	}

	m := final.(promptModel)
	if m.err != nil {
		return "", m.err
	}
	line := m.input.Value()
	p.history.add(line)
	return line, nil
}

// plainPrompt reads lines from a non-terminal input.
type plainPrompt struct {
	out    io.Writer
	reader *bufio.Reader

	// pending holds a read abandoned by an interrupt; the next ReadLine
	// picks it up instead of racing it.
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

// NewPlainPrompt returns a LineReader that prints the prompt and reads
// newline-terminated lines from in. SIGINT while waiting yields
// ErrInterrupted.
func NewPlainPrompt(in io.Reader, out io.Writer) LineReader {
	return &plainPrompt{out: out, reader: bufio.NewReader(in)}
}

func (p *plainPrompt) ReadLine(ctx context.Context, prompt string) (string, error) {
	if _, err := io.WriteString(p.out, prompt); err != nil {
		return "", err
	}

	if p.pending == nil {
		p.pending = make(chan readResult, 1)
		go func(ch chan<- readResult) {
			line, err := p.reader.ReadString('\n')
			ch <- readResult{line: line, err: err}
		}(p.pending)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	select {
	case res := <-p.pending:
		p.pending = nil
		line := strings.TrimRight(res.line, "\r\n")
		if res.err != nil && (line == "" || !errors.Is(res.err, io.EOF)) {
			return "", res.err
		}
		return line, nil
	case <-sigs:
		return "", ErrInterrupted
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
