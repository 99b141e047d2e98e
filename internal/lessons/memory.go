package lessons

import (
	"context"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/prebuilt"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
)

// BuildMemory compiles the single chatbot node with a checkpointer, so
// each turn of a thread continues from the saved conversation.
func BuildMemory(model *llm.ChatModel, store checkpoint.Store) (*stategraph.CompiledGraph[prebuilt.MessagesState], error) {
	return stategraph.NewGraph[prebuilt.MessagesState]().
		AddNode(ChatbotNode, prebuilt.Chatbot(model)).
		SetEntry(ChatbotNode).
		AddEdge(ChatbotNode, stategraph.END).
		Compile(
			stategraph.WithCheckpointer(store),
			stategraph.WithName("1_3_memory"),
		)
}

func runMemory(ctx context.Context, env Env) error {
	store, err := checkpoint.Open(env.Settings.CheckpointDB)
	if err != nil {
		return err
	}

	graph, err := BuildMemory(env.Model, store)
	if err != nil {
		_ = store.Close()
		return err
	}
	return env.chat(ctx, graph, store)
}
