package stategraph

// END is the terminal node identifier.
// Use it as an edge target, or as a router result, to finish a run.
const END = "__end__"

// START is the virtual source node.
// AddEdge(START, id) is equivalent to SetEntry(id).
const START = "__start__"

// NodeFunc is the signature for all node functions.
// A node receives the execution context and the current state and returns
// the state the next node should see.
//
// State is passed by value. For slice-backed states such as a message list,
// append to a copy rather than mutating shared backing arrays.
//
// Example:
//
//	func chatbot(ctx stategraph.Context, s prebuilt.MessagesState) (prebuilt.MessagesState, error) {
//	    reply, err := model.Invoke(ctx, s.Messages)
//	    if err != nil {
//	        return s, err
//	    }
//	    return s.Add(reply), nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc picks the next node from the state after its source node ran.
// It must return a node ID or END. An empty string or unknown ID fails the
// run with a RouterError.
type RouterFunc[S any] func(ctx Context, state S) string

// Mergeable is implemented by states that know how to fold a new input into
// an existing value. When a compiled graph with a checkpointer continues a
// thread, the saved state is merged with the caller's input through this
// method; states that do not implement it are replaced by the input.
type Mergeable[S any] interface {
	Merge(update S) S
}
