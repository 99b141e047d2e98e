package stategraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for an execution graph over state S.
// Chain AddNode, AddEdge, AddConditionalEdge and SetEntry, then call
// Compile to obtain an immutable CompiledGraph.
//
// Graph is not meant to be built from several goroutines at once.
//
// Example:
//
//	g := stategraph.NewGraph[prebuilt.MessagesState]().
//	    AddNode("chatbot", prebuilt.Chatbot(model)).
//	    AddEdge(stategraph.START, "chatbot").
//	    AddEdge("chatbot", stategraph.END)
//
//	compiled, err := g.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
}

// NewGraph creates an empty graph builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// AddNode registers a named node.
//
// Panics if:
//   - id is empty
//   - id is a reserved word ("END", "__end__", "START", "__start__"; case-insensitive)
//   - id contains whitespace
//   - fn is nil
//   - id is already registered
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("stategraph: node ID cannot be empty")
	}

	switch strings.ToLower(id) {
	case "end", END:
		panic("stategraph: node ID cannot be reserved word 'END'")
	case "start", START:
		panic("stategraph: node ID cannot be reserved word 'START'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("stategraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("stategraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge. The target may be a node ID or END.
// An edge from START designates the entry point.
//
// Edge validation happens in Compile, so edges may be added before the
// nodes they reference.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if from == START {
		g.entryPoint = to
		return g
	}

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge makes router decide where execution goes after from.
// A conditional edge takes precedence over simple edges on the same node.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the node executed first.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
