/*
Package llm talks to chat models.

InitChatModel turns a spec string into a ChatModel:

	model, err := llm.InitChatModel(os.Getenv("LLM_MODEL"))
	if err != nil {
	    return err // llm.ErrModelNotConfigured when LLM_MODEL is unset
	}
	reply, err := model.Invoke(ctx, []llm.Message{llm.UserMessage("Hi")})

Specs are "provider:model" (openai, google_genai, claude-cli, mock) or a
bare model name whose provider is inferred. Providers read their keys from
the environment: OPENAI_API_KEY and OPENAI_BASE_URL for openai,
GOOGLE_API_KEY or GEMINI_API_KEY for google_genai.

BindTools returns a model that offers tools; replies then may carry
ToolCalls for a tool node to execute. Stream delivers text fragments as
they arrive.

Transient failures (rate limits, 5xx, timeouts) are retried with backoff
through package retry. Everything else comes back as *Error.

MockClient is a scripted Client for tests.
*/
package llm
