package prebuilt

import (
	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
)

// Chatbot returns a node that sends the conversation to model and appends
// the reply. Text fragments are forwarded with Context.Emit as they arrive,
// so Stream callers in StreamMessages or StreamAll mode see tokens live.
//
// A reply that was cut off by an error is not added to the state.
func Chatbot(model *llm.ChatModel) stategraph.NodeFunc[MessagesState] {
	return func(ctx stategraph.Context, s MessagesState) (MessagesState, error) {
		reply, err := model.Stream(ctx, s.Messages, func(token string) {
			ctx.Emit(token)
		})
		if err != nil {
			return s, err
		}

		ctx.Logger().Debug("model replied",
			"model", model.Name(),
			"chars", len(reply.Content),
			"tool_calls", len(reply.ToolCalls))

		return s.Add(reply), nil
	}
}
