package template

// MissingAction specifies how Format handles a placeholder with no value.
type MissingAction int

const (
	// MissingError fails with *UndefinedVariableError. This is the default.
	MissingError MissingAction = iota

	// MissingKeep leaves the placeholder as written, braces included.
	MissingKeep

	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty
)

// Option configures a Prompt.
type Option func(*Prompt)

// WithMissingAction sets how missing variables are handled.
//
// Example:
//
//	p := template.MustParse("Hi {name}", template.WithMissingAction(template.MissingKeep))
//	s, _ := p.Format(nil)
//	// s: "Hi {name}"
func WithMissingAction(action MissingAction) Option {
	return func(p *Prompt) {
		p.missing = action
	}
}

// WithDefaults supplies values used when Format's vars lack a key.
func WithDefaults(vars map[string]any) Option {
	return func(p *Prompt) {
		for k, v := range vars {
			p.defaults[k] = v
		}
	}
}
