/*
Package prebuilt provides the building blocks of chat graphs: a message
list state, a model node, a tool-executing node and the router between
them.

A tool-calling agent:

	search := tool.TavilySearch(2)
	model := model.BindTools(tool.Definitions(search)...)

	g := stategraph.NewGraph[prebuilt.MessagesState]().
	    AddNode("chatbot", prebuilt.Chatbot(model)).
	    AddNode(prebuilt.ToolsNode, prebuilt.ToolNode(search)).
	    AddEdge(stategraph.START, "chatbot").
	    AddConditionalEdge("chatbot", prebuilt.ToolsCondition).
	    AddEdge(prebuilt.ToolsNode, "chatbot")
*/
package prebuilt
