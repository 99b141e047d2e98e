// Package tool defines the tools a chat model can call.
//
// A Tool pairs a model-facing definition (name, description, JSON schema)
// with a Call that receives the raw argument JSON the model produced.
// NewFunc builds one from a typed Go function; arguments are repaired with
// jsonrepair when malformed and validated against the schema first.
//
// TavilySearch and WebFetch are ready-made tools over HTTP:
//
//	search := tool.TavilySearch(2)
//	model = model.BindTools(tool.Definitions(search)...)
package tool
