package stategraph

import (
	"context"
)

// Counter is a minimal state.
type Counter struct {
	Value int
}

// Transcript is a conversation-like state that merges new input by
// appending lines.
type Transcript struct {
	Lines []string `json:"lines"`
	Turns int      `json:"turns"`
}

func (t Transcript) Merge(update Transcript) Transcript {
	t.Lines = append(append([]string(nil), t.Lines...), update.Lines...)
	return t
}

var _ Mergeable[Transcript] = Transcript{}

func increment(_ Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// say returns a node appending line to the transcript.
func say(line string) NodeFunc[Transcript] {
	return func(_ Context, s Transcript) (Transcript, error) {
		s.Lines = append(append([]string(nil), s.Lines...), line)
		return s, nil
	}
}

// trackingNode records its name in order.
func trackingNode(name string, tracker *[]string) NodeFunc[Counter] {
	return func(_ Context, s Counter) (Counter, error) {
		*tracker = append(*tracker, name)
		s.Value++
		return s, nil
	}
}

func failingNode(err error) NodeFunc[Counter] {
	return func(_ Context, s Counter) (Counter, error) {
		return s, err
	}
}

func panicNode(value any) NodeFunc[Counter] {
	return func(_ Context, _ Counter) (Counter, error) {
		panic(value)
	}
}

func testCtx() Context {
	return NewContext(context.Background())
}

// linearCounter builds entry -> a -> b -> END.
func linearCounter() *Graph[Counter] {
	return NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END)
}
