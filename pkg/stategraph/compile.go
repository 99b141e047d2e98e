package stategraph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
)

// compileConfig holds options applied at Compile time.
type compileConfig struct {
	name         string
	checkpointer checkpoint.Store
}

// CompileOption configures a CompiledGraph.
type CompileOption func(*compileConfig)

// WithCheckpointer attaches a checkpoint store to the compiled graph.
// Every run then requires a thread ID (WithThreadID); state is saved after
// each node and a later run on the same thread starts from the saved state.
func WithCheckpointer(store checkpoint.Store) CompileOption {
	return func(c *compileConfig) {
		c.checkpointer = store
	}
}

// WithName sets the graph name reported in traces. Default: "stategraph".
func WithName(name string) CompileOption {
	return func(c *compileConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// Compile validates the graph and creates an executable CompiledGraph.
// All validation failures are joined into a single error.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing node
//  3. All edge sources must reference existing nodes
//  4. All edge targets must reference existing nodes or END
//  5. The entry point must have a path to END
//
// Nodes unreachable from the entry are logged as warnings only.
func (g *Graph[S]) Compile(opts ...CompileOption) (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cfg := compileConfig{name: "stategraph"}
	for _, opt := range opts {
		opt(&cfg)
	}

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for from, targets := range g.edges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range targets {
			if to == END {
				continue
			}
			if _, exists := g.nodes[to]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	for from := range g.conditionalEdges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
	}

	if _, exists := g.nodes[g.entryPoint]; exists && !g.hasPathToEnd() {
		errs = append(errs, ErrNoPathToEnd)
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(cfg), nil
}

// hasPathToEnd reports whether END is reachable from the entry point.
// A node with a conditional edge counts as able to reach END, since its
// router may return END at runtime.
func (g *Graph[S]) hasPathToEnd() bool {
	canReachEnd := map[string]bool{END: true}
	for from := range g.conditionalEdges {
		canReachEnd[from] = true
	}

	changed := true
	for changed {
		changed = false
		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// warnUnreachableNodes logs nodes that cannot be reached from the entry.
func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableNodes()
	for nodeID := range g.nodes {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// findReachableNodes walks the graph breadth-first from the entry point.
// A router can return any node, so reaching a conditional node marks every
// node reachable.
func (g *Graph[S]) findReachableNodes() map[string]bool {
	reachable := map[string]bool{g.entryPoint: true}
	queue := []string{g.entryPoint}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, conditional := g.conditionalEdges[current]; conditional {
			for nodeID := range g.nodes {
				reachable[nodeID] = true
			}
			return reachable
		}

		for _, target := range g.edges[current] {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}

	return reachable
}

// buildCompiledGraph copies the builder state into an immutable CompiledGraph.
func (g *Graph[S]) buildCompiledGraph(cfg compileConfig) *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	edges := make(map[string][]string, len(g.edges))
	predecessors := make(map[string][]string)
	for from, targets := range g.edges {
		edges[from] = append([]string(nil), targets...)
		for _, to := range targets {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}

	conditionalEdges := make(map[string]RouterFunc[S], len(g.conditionalEdges))
	for from, router := range g.conditionalEdges {
		conditionalEdges[from] = router
	}

	return &CompiledGraph[S]{
		name:             cfg.name,
		nodes:            nodes,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		predecessors:     predecessors,
		entryPoint:       g.entryPoint,
		checkpointer:     cfg.checkpointer,
	}
}
