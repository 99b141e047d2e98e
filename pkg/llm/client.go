package llm

import "context"

// Client is a chat-completion backend.
//
// Stream returns a channel that is always closed by the implementation.
// A failure after the stream started arrives as a chunk with Error set,
// and is the last chunk sent.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}
