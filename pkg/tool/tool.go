package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/xeipuuv/gojsonschema"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/retry"
)

// Tool is something a model can call.
type Tool interface {
	// Definition describes the tool to the model.
	Definition() llm.Tool

	// Call runs the tool with the JSON arguments the model produced and
	// returns the text handed back to the model.
	Call(ctx context.Context, args string) (string, error)
}

// Definitions collects the model-facing definitions of tools, in order.
func Definitions(tools ...Tool) []llm.Tool {
	defs := make([]llm.Tool, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Func adapts a typed Go function into a Tool.
//
// Arguments are repaired when they are not valid JSON, validated against
// the schema and decoded into In before fn runs.
type Func[In any] struct {
	name        string
	description string
	schema      json.RawMessage
	loader      gojsonschema.JSONLoader
	fn          func(ctx context.Context, in In) (string, error)
}

// NewFunc creates a tool named name whose parameters are described by the
// JSON schema text. Panics on an empty name or a schema that is not JSON.
//
// Example:
//
//	echo := tool.NewFunc("echo", "Repeat the text.",
//	    `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
//	    func(ctx context.Context, in struct{ Text string `json:"text"` }) (string, error) {
//	        return in.Text, nil
//	    })
func NewFunc[In any](name, description, schema string, fn func(ctx context.Context, in In) (string, error)) *Func[In] {
	if name == "" {
		panic("tool: name cannot be empty")
	}
	if fn == nil {
		panic("tool: function cannot be nil")
	}
	if !json.Valid([]byte(schema)) {
		panic(fmt.Sprintf("tool: schema for %s is not valid JSON", name))
	}
	return &Func[In]{
		name:        name,
		description: description,
		schema:      json.RawMessage(schema),
		loader:      gojsonschema.NewStringLoader(schema),
		fn:          fn,
	}
}

// Name returns the tool name.
func (f *Func[In]) Name() string { return f.name }

// Definition implements Tool.
func (f *Func[In]) Definition() llm.Tool {
	return llm.Tool{
		Name:        f.name,
		Description: f.description,
		Parameters:  f.schema,
	}
}

// Call implements Tool.
func (f *Func[In]) Call(ctx context.Context, args string) (string, error) {
	in, err := f.decode(args)
	if err != nil {
		return "", err
	}
	return f.fn(ctx, in)
}

func (f *Func[In]) decode(args string) (In, error) {
	var in In

	text, err := repairArguments(args)
	if err != nil {
		return in, err
	}

	result, err := gojsonschema.Validate(f.loader, gojsonschema.NewStringLoader(text))
	if err != nil {
		return in, fmt.Errorf("tool %s: validate arguments: %w", f.name, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return in, &ArgumentError{Tool: f.name, Problems: problems}
	}

	if err := json.Unmarshal([]byte(text), &in); err != nil {
		return in, fmt.Errorf("tool %s: decode arguments: %w", f.name, err)
	}
	return in, nil
}

// repairArguments returns args as valid JSON. Empty arguments mean an
// empty object.
func repairArguments(args string) (string, error) {
	text := strings.TrimSpace(args)
	if text == "" {
		return "{}", nil
	}
	if json.Valid([]byte(text)) {
		return text, nil
	}
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return "", &retry.JSONParseError{Input: args, Message: err.Error()}
	}
	return repaired, nil
}

// ArgumentError reports arguments that do not match a tool's schema.
type ArgumentError struct {
	Tool     string
	Problems []string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tool %s: invalid arguments: %s", e.Tool, strings.Join(e.Problems, "; "))
}
