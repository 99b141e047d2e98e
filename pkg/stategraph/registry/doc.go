/*
Package registry provides a concurrency-safe, name-keyed lookup table.

It backs the chat-model provider table in package llm and the tool table
in package prebuilt:

	providers := registry.New[Factory]()
	providers.Register("openai", newOpenAI)
	providers.Alias("gpt", "openai")

	f, err := providers.Lookup("gpt")

Names are case-insensitive. Lookup of an unknown name returns an
*UnknownError listing what is registered, which reads well in CLI output.
*/
package registry
