package prebuilt

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
	"github.com/randalmurphal/graphchat/pkg/stategraph/registry"
	"github.com/randalmurphal/graphchat/pkg/tool"
)

// ToolsNode is the node name ToolsCondition routes to.
const ToolsNode = "tools"

// ErrNoToolCalls indicates ToolNode ran without a pending tool request.
var ErrNoToolCalls = errors.New("last message has no tool calls")

// ToolNode returns a node that executes the tool calls of the last
// assistant message and appends one tool message per call, in call order.
//
// Calls run concurrently. A call naming an unknown tool, with invalid
// arguments, or whose tool fails is answered with "Error: <reason>" so the
// model can recover; only cancellation fails the node.
//
// Panics if two tools share a name.
func ToolNode(tools ...tool.Tool) stategraph.NodeFunc[MessagesState] {
	table := registry.New[tool.Tool]()
	for _, t := range tools {
		name := t.Definition().Name
		if table.Has(name) {
			panic(fmt.Sprintf("prebuilt: duplicate tool %q", name))
		}
		table.Register(name, t)
	}

	return func(ctx stategraph.Context, s MessagesState) (MessagesState, error) {
		last, ok := s.LastMessage()
		if !ok || !last.HasToolCalls() {
			return s, ErrNoToolCalls
		}

		results := make([]llm.Message, len(last.ToolCalls))
		var g errgroup.Group
		for i, call := range last.ToolCalls {
			g.Go(func() error {
				results[i] = runTool(ctx, table, call)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return s, err
		}
		return s.Add(results...), nil
	}
}

func runTool(ctx stategraph.Context, table *registry.Registry[tool.Tool], call llm.ToolCall) llm.Message {
	logger := ctx.Logger().With("tool", call.Name, "tool_call_id", call.ID)

	t, err := table.Lookup(call.Name)
	if err != nil {
		logger.Warn("unknown tool requested", "error", err)
		return llm.ToolMessage(call.ID, call.Name, errorContent(err))
	}

	out, err := t.Call(ctx, call.Arguments)
	if err != nil {
		logger.Warn("tool failed", "error", err)
		return llm.ToolMessage(call.ID, call.Name, errorContent(err))
	}

	logger.Debug("tool completed", "bytes", len(out))
	return llm.ToolMessage(call.ID, call.Name, out)
}

func errorContent(err error) string {
	return "Error: " + err.Error()
}

// ToolsCondition routes to ToolsNode when the last message requests tools
// and to END otherwise.
//
//	g.AddConditionalEdge("chatbot", prebuilt.ToolsCondition)
func ToolsCondition(_ stategraph.Context, s MessagesState) string {
	if last, ok := s.LastMessage(); ok && last.HasToolCalls() {
		return ToolsNode
	}
	return stategraph.END
}
