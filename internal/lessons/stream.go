package lessons

import (
	"context"
	"fmt"
	"io"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
	"github.com/randalmurphal/graphchat/pkg/stategraph/template"
)

// DefaultJokeTopic is what the stream lesson asks about.
const DefaultJokeTopic = "ice cream"

// JokeState is the state of the joke graph.
type JokeState struct {
	Topic string `json:"topic"`
	Joke  string `json:"joke"`
}

var jokePrompt = template.MustParse("Generate a joke about {topic}")

func callModel(model *llm.ChatModel) stategraph.NodeFunc[JokeState] {
	return func(ctx stategraph.Context, s JokeState) (JokeState, error) {
		prompt, err := jokePrompt.Format(map[string]any{"topic": s.Topic})
		if err != nil {
			return s, err
		}

		reply, err := model.Stream(ctx, []llm.Message{llm.UserMessage(prompt)}, func(token string) {
			ctx.Emit(token)
		})
		if err != nil {
			return s, err
		}
		s.Joke = reply.Content
		return s, nil
	}
}

// BuildJoke compiles START -> call_model -> END over JokeState.
func BuildJoke(model *llm.ChatModel) (*stategraph.CompiledGraph[JokeState], error) {
	return stategraph.NewGraph[JokeState]().
		AddNode("call_model", callModel(model)).
		AddEdge(stategraph.START, "call_model").
		AddEdge("call_model", stategraph.END).
		Compile(stategraph.WithName("streaming"))
}

// StreamJoke runs graph in token mode and writes every token to w
// followed by "|".
func StreamJoke(ctx context.Context, graph *stategraph.CompiledGraph[JokeState], topic string, w io.Writer, opts ...stategraph.RunOption) error {
	opts = append(opts, stategraph.WithStreamMode(stategraph.StreamMessages))

	for ev, err := range graph.Stream(stategraph.NewContext(ctx), JokeState{Topic: topic}, opts...) {
		if err != nil {
			return err
		}
		token, ok := ev.Chunk.(string)
		if !ok {
			continue
		}
		if _, err := fmt.Fprint(w, token, "|"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func runStream(ctx context.Context, env Env) error {
	graph, err := BuildJoke(env.Model)
	if err != nil {
		return err
	}
	return StreamJoke(ctx, graph, DefaultJokeTopic, env.output(), env.RunOptions()...)
}
