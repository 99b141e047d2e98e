package stategraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNode_Panics(t *testing.T) {
	tests := []struct {
		name string
		id   string
		fn   NodeFunc[Counter]
		want string
	}{
		{"empty id", "", increment, "stategraph: node ID cannot be empty"},
		{"END", "END", increment, "stategraph: node ID cannot be reserved word 'END'"},
		{"__end__", END, increment, "stategraph: node ID cannot be reserved word 'END'"},
		{"start lowercase", "start", increment, "stategraph: node ID cannot be reserved word 'START'"},
		{"__start__", START, increment, "stategraph: node ID cannot be reserved word 'START'"},
		{"whitespace", "chat bot", increment, "stategraph: node ID cannot contain whitespace"},
		{"nil fn", "chatbot", nil, "stategraph: node function cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PanicsWithValue(t, tt.want, func() {
				NewGraph[Counter]().AddNode(tt.id, tt.fn)
			})
		})
	}
}

func TestAddNode_Duplicate(t *testing.T) {
	g := NewGraph[Counter]().AddNode("chatbot", increment)
	assert.PanicsWithValue(t, "stategraph: duplicate node ID: chatbot", func() {
		g.AddNode("chatbot", increment)
	})
}

func TestAddEdge_FromStartSetsEntry(t *testing.T) {
	g := NewGraph[Counter]().
		AddNode("chatbot", increment).
		AddEdge(START, "chatbot")

	assert.Equal(t, "chatbot", g.entryPoint)
	assert.Empty(t, g.edges[START])
}

func TestSetEntry(t *testing.T) {
	g := NewGraph[Counter]().AddNode("a", increment).SetEntry("a")
	assert.Equal(t, "a", g.entryPoint)
}

func TestAddConditionalEdge_NilRouterPanics(t *testing.T) {
	assert.PanicsWithValue(t, "stategraph: router function cannot be nil", func() {
		NewGraph[Counter]().AddConditionalEdge("a", nil)
	})
}

func TestAddEdge_BeforeNodes(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddEdge("a", END).
		AddEdge(START, "a").
		AddNode("a", increment).
		Compile()
	require.NoError(t, err)
	assert.Equal(t, "a", compiled.EntryPoint())
}
