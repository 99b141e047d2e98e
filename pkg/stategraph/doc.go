/*
Package stategraph builds and executes cyclic state graphs for LLM agents.

# Overview

A graph is a set of named nodes over a state type S. Each node receives the
current state and returns the next one. Edges decide where execution goes:
simple edges always lead to one node, conditional edges ask a RouterFunc.
Execution starts at the entry point and finishes when an edge or router
leads to END.

	type State struct {
	    Input  string
	    Output string
	}

	func shout(ctx stategraph.Context, s State) (State, error) {
	    s.Output = strings.ToUpper(s.Input)
	    return s, nil
	}

	compiled, err := stategraph.NewGraph[State]().
	    AddNode("shout", shout).
	    AddEdge(stategraph.START, "shout").
	    AddEdge("shout", stategraph.END).
	    Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := stategraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, State{Input: "hello"})

# Agent Loops

A router may send execution back to an earlier node. The usual tool-calling
agent alternates between a model node and a tool node until the model stops
requesting tools:

	g.AddConditionalEdge("chatbot", prebuilt.ToolsCondition)
	g.AddEdge("tools", "chatbot")

Runs are bounded by WithMaxIterations (default 1000).

# Threads

Compile a graph WithCheckpointer to keep state between runs. Every run then
names a thread:

	compiled, _ := g.Compile(stategraph.WithCheckpointer(checkpoint.NewMemoryStore()))
	compiled.Run(ctx, turn1, stategraph.WithThreadID("1"))
	compiled.Run(ctx, turn2, stategraph.WithThreadID("1")) // sees turn1

State is saved after every node. A new run on the same thread starts from
the last saved state; states implementing Mergeable fold the new input in
(prebuilt.MessagesState appends messages). State reads it back.

# Streaming

Stream yields events while the graph runs:

	for ev, err := range compiled.Stream(ctx, input, stategraph.WithStreamMode(stategraph.StreamAll)) {
	    if err != nil {
	        return err
	    }
	    switch ev.Type {
	    case stategraph.EventChunk:
	        fmt.Print(ev.Chunk)
	    case stategraph.EventNode:
	        render(ev.State)
	    }
	}

Nodes produce chunks with Context.Emit. Breaking out of the loop cancels
the running node.

# Errors

Node failures are wrapped in NodeError, panics in PanicError, cancellation
in CancellationError. Use errors.As to inspect them; the returned state is
the state at the point of failure.

# Observability

WithObservabilityLogger, WithMetrics and WithTracing enable slog logging
and OpenTelemetry metrics and spans for a run. All are off by default.
*/
package stategraph
