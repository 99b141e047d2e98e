package lessons

import (
	"context"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/prebuilt"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
)

// ChatbotNode is the node every chat lesson answers from.
const ChatbotNode = "chatbot"

// BuildChatbot compiles START -> chatbot -> END.
func BuildChatbot(model *llm.ChatModel) (*stategraph.CompiledGraph[prebuilt.MessagesState], error) {
	return stategraph.NewGraph[prebuilt.MessagesState]().
		AddNode(ChatbotNode, prebuilt.Chatbot(model)).
		AddEdge(stategraph.START, ChatbotNode).
		AddEdge(ChatbotNode, stategraph.END).
		Compile(stategraph.WithName("1_1_chatbot"))
}

func runChatbot(ctx context.Context, env Env) error {
	graph, err := BuildChatbot(env.Model)
	if err != nil {
		return err
	}
	return env.chat(ctx, graph)
}
