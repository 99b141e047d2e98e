package lessons

import (
	"context"
	"net/http"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/prebuilt"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
	"github.com/randalmurphal/graphchat/pkg/tool"
)

// BuildTools compiles a chatbot that may call tools:
//
//	START -> chatbot -> (tool calls?) tools -> chatbot ... -> END
func BuildTools(model *llm.ChatModel, tools ...tool.Tool) (*stategraph.CompiledGraph[prebuilt.MessagesState], error) {
	bound := model.BindTools(tool.Definitions(tools...)...)

	return stategraph.NewGraph[prebuilt.MessagesState]().
		AddNode(ChatbotNode, prebuilt.Chatbot(bound)).
		AddNode(prebuilt.ToolsNode, prebuilt.ToolNode(tools...)).
		AddEdge(stategraph.START, ChatbotNode).
		AddConditionalEdge(ChatbotNode, prebuilt.ToolsCondition).
		AddEdge(prebuilt.ToolsNode, ChatbotNode).
		Compile(stategraph.WithName("1_2_tools"))
}

// DefaultTools returns web search limited to env's result count, and a
// page fetcher for reading a result in full.
func DefaultTools(env Env) []tool.Tool {
	client := &http.Client{Timeout: env.Settings.RequestTimeout}
	return []tool.Tool{
		tool.TavilySearch(env.Settings.SearchMaxResults, tool.WithHTTPClient(client)),
		tool.WebFetch(tool.WithHTTPClient(client)),
	}
}

func runTools(ctx context.Context, env Env) error {
	tools := env.Tools
	if tools == nil {
		tools = DefaultTools(env)
	}

	graph, err := BuildTools(env.Model, tools...)
	if err != nil {
		return err
	}
	return env.chat(ctx, graph)
}
