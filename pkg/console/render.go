package console

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/ohler55/ojg/oj"
)

// Styles holds the colors and text styles of the chat UI.
type Styles struct {
	BannerBorder   lipgloss.TerminalColor
	ResponseBorder lipgloss.TerminalColor
	ErrorBorder    lipgloss.TerminalColor

	BannerTitle   lipgloss.Style
	BannerHeading lipgloss.Style
	ResponseTitle lipgloss.Style
	ErrorText     lipgloss.Style
	Timestamp     lipgloss.Style
	You           lipgloss.Style
	Notice        lipgloss.Style
	Abort         lipgloss.Style
	Rule          lipgloss.Style
	Spinner       lipgloss.Style

	renderer *lipgloss.Renderer
}

// DefaultStyles returns the standard palette, bound to the color profile
// detected for w.
func DefaultStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		BannerBorder:   lipgloss.Color("5"),
		ResponseBorder: lipgloss.Color("6"),
		ErrorBorder:    lipgloss.Color("1"),

		BannerTitle:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
		BannerHeading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		ResponseTitle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		ErrorText:     r.NewStyle().Foreground(lipgloss.Color("1")),
		Timestamp:     r.NewStyle().Faint(true),
		You:           r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		Notice:        r.NewStyle().Foreground(lipgloss.Color("3")),
		Abort:         r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		Rule:          r.NewStyle().Foreground(lipgloss.Color("8")),
		Spinner:       r.NewStyle().Foreground(lipgloss.Color("5")),

		renderer: r,
	}
}

func (s Styles) newStyle() lipgloss.Style {
	if s.renderer == nil {
		return lipgloss.NewStyle()
	}
	return s.renderer.NewStyle()
}

// panel draws body in a rounded box width columns wide with title centred
// in the top edge.
func (s Styles) panel(title, body string, border lipgloss.TerminalColor, titleStyle lipgloss.Style, width int) string {
	b := lipgloss.RoundedBorder()
	box := s.newStyle().
		Border(b).
		BorderForeground(border).
		Padding(0, 1).
		Width(max(width-2, 4))
	out := box.Render(body)
	if title == "" {
		return out
	}

	lines := strings.Split(out, "\n")
	inner := lipgloss.Width(lines[0]) - 2
	label := " " + title + " "
	if lipgloss.Width(label) > inner {
		return out
	}
	left := (inner - lipgloss.Width(label)) / 2
	right := inner - lipgloss.Width(label) - left

	edge := s.newStyle().Foreground(border)
	lines[0] = edge.Render(b.TopLeft+strings.Repeat(b.Top, left)) +
		titleStyle.Render(label) +
		edge.Render(strings.Repeat(b.Top, right)+b.TopRight)
	return strings.Join(lines, "\n")
}

// rule draws a horizontal line across width with title in the middle.
func (s Styles) rule(title string, width int) string {
	label := " " + title + " "
	fill := max(width-lipgloss.Width(label), 2)
	left := fill / 2
	right := fill - left
	return s.Rule.Render(strings.Repeat("─", left)) + label + s.Rule.Render(strings.Repeat("─", right))
}

// markdown renders text for the terminal. Rendering problems fall back to
// the raw text.
type markdown struct {
	renderer *glamour.TermRenderer
}

func newMarkdown(style string, wrap int) (*markdown, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	return &markdown{renderer: r}, nil
}

func (m *markdown) render(text string) string {
	if m == nil || m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// nonFinite are the bare number literals tool output may carry that
// strict JSON parsers reject.
var nonFinite = []string{"NaN", "Infinity", "-Infinity"}

// parseJSON reports whether content is a JSON document and returns it
// trimmed. Any JSON value counts, including bare strings and numbers.
func parseJSON(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", false
	}
	if slices.Contains(nonFinite, trimmed) {
		return trimmed, true
	}
	if _, err := oj.ParseString(trimmed); err != nil {
		return "", false
	}
	return trimmed, true
}

// formatJSON re-indents blob with two spaces. Object keys come out sorted.
func formatJSON(blob string) (string, error) {
	if slices.Contains(nonFinite, blob) {
		return blob, nil
	}
	v, err := oj.ParseString(blob)
	if err != nil {
		return "", err
	}
	return oj.JSON(v, &oj.Options{Indent: 2, Sort: true, HTMLUnsafe: true}), nil
}

// highlight writes src as syntax-highlighted JSON, or plain when color is
// off or highlighting fails.
func highlight(w io.Writer, src string, color bool) error {
	if !color {
		_, err := fmt.Fprintln(w, src)
		return err
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, src, "json", "terminal256", "monokai"); err != nil {
		_, err := fmt.Fprintln(w, src)
		return err
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}
