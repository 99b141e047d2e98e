package stategraph

import (
	"sort"

	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
)

// CompiledGraph is an immutable, executable graph created by Graph.Compile.
//
// A CompiledGraph may serve concurrent Run and Stream calls. Runs that share
// a checkpointer must use distinct thread IDs.
type CompiledGraph[S any] struct {
	name             string
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	predecessors     map[string][]string
	entryPoint       string
	checkpointer     checkpoint.Store
}

// Name returns the graph name used in traces.
func (cg *CompiledGraph[S]) Name() string {
	return cg.name
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers, sorted.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasNode reports whether a node exists.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the simple-edge targets of a node.
// Conditional targets are decided at runtime and are not included.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// Predecessors returns the nodes with a simple edge into id.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional reports whether the node routes through a RouterFunc.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, exists := cg.conditionalEdges[id]
	return exists
}

// Checkpointer returns the store attached at compile time, or nil.
func (cg *CompiledGraph[S]) Checkpointer() checkpoint.Store {
	return cg.checkpointer
}
