package template

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax indicates an unbalanced or malformed placeholder.
var ErrSyntax = errors.New("template syntax error")

type segment struct {
	text string
	name string // set for placeholders
}

// Prompt is a parsed template.
type Prompt struct {
	source   string
	segments []segment
	vars     []string
	missing  MissingAction
	defaults map[string]any
}

// Parse compiles s. Placeholder names are letters, digits and underscores,
// not starting with a digit.
func Parse(s string, opts ...Option) (*Prompt, error) {
	p := &Prompt{source: s, defaults: make(map[string]any)}
	for _, opt := range opts {
		opt(p)
	}

	var text strings.Builder
	seen := make(map[string]bool)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			text.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			text.WriteByte('}')
			i++
		case c == '}':
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrSyntax, i)
		case c == '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrSyntax, i)
			}
			name := s[i+1 : i+1+end]
			if !validName(name) {
				return nil, fmt.Errorf("%w: invalid placeholder %q", ErrSyntax, name)
			}
			if text.Len() > 0 {
				p.segments = append(p.segments, segment{text: text.String()})
				text.Reset()
			}
			p.segments = append(p.segments, segment{name: name})
			if !seen[name] {
				seen[name] = true
				p.vars = append(p.vars, name)
			}
			i += end + 1
		default:
			text.WriteByte(c)
		}
	}
	if text.Len() > 0 {
		p.segments = append(p.segments, segment{text: text.String()})
	}
	return p, nil
}

// MustParse is like Parse but panics on error. For package-level prompts.
func MustParse(s string, opts ...Option) *Prompt {
	p, err := Parse(s, opts...)
	if err != nil {
		panic(fmt.Sprintf("template: %v", err))
	}
	return p
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Variables returns placeholder names in order of first appearance.
func (p *Prompt) Variables() []string {
	out := make([]string, len(p.vars))
	copy(out, p.vars)
	return out
}

// String returns the source text.
func (p *Prompt) String() string { return p.source }

// Format substitutes vars into the prompt. Values are rendered with %v.
func (p *Prompt) Format(vars map[string]any) (string, error) {
	var b strings.Builder
	var missing []string

	for _, seg := range p.segments {
		if seg.name == "" {
			b.WriteString(seg.text)
			continue
		}

		val, ok := vars[seg.name]
		if !ok {
			val, ok = p.defaults[seg.name]
		}
		if ok {
			fmt.Fprintf(&b, "%v", val)
			continue
		}

		switch p.missing {
		case MissingKeep:
			b.WriteString("{" + seg.name + "}")
		case MissingEmpty:
		default:
			missing = append(missing, seg.name)
		}
	}

	if len(missing) > 0 {
		return "", &UndefinedVariableError{Names: missing}
	}
	return b.String(), nil
}

// MustFormat is like Format but panics on error.
func (p *Prompt) MustFormat(vars map[string]any) string {
	s, err := p.Format(vars)
	if err != nil {
		panic(fmt.Sprintf("template: %v", err))
	}
	return s
}

// UndefinedVariableError lists placeholders that had no value.
type UndefinedVariableError struct {
	Names []string
}

func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}
