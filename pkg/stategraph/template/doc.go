/*
Package template formats prompt text with named placeholders.

Placeholders use braces, as in chat prompt templates:

	p := template.MustParse("Generate a joke about {topic}")
	text, err := p.Format(map[string]any{"topic": "ice cream"})
	// text: "Generate a joke about ice cream"

Doubled braces are literals: "{{" renders "{" and "}}" renders "}".

# Missing Variables

By default Format fails when a placeholder has no value:

	_, err := p.Format(nil)
	// err: "undefined variable: topic"

WithMissingAction changes that to keeping the placeholder or dropping it.

Prompts are immutable after Parse and safe for concurrent use.
*/
package template
