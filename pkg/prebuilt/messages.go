package prebuilt

import (
	"slices"

	"github.com/google/uuid"

	"github.com/randalmurphal/graphchat/pkg/llm"
)

// MessagesState is the conversation state shared by the chat graphs.
type MessagesState struct {
	Messages []llm.Message `json:"messages"`
}

// AddMessages merges right into left and returns a new slice; neither
// input is modified.
//
// Messages without an ID get a fresh UUID. A message whose ID is already
// present replaces the earlier message in place; every other message is
// appended in order.
func AddMessages(left, right []llm.Message) []llm.Message {
	merged := make([]llm.Message, 0, len(left)+len(right))
	index := make(map[string]int, len(left)+len(right))

	for _, msg := range left {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		index[msg.ID] = len(merged)
		merged = append(merged, msg)
	}

	for _, msg := range right {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if i, ok := index[msg.ID]; ok {
			merged[i] = msg
			continue
		}
		index[msg.ID] = len(merged)
		merged = append(merged, msg)
	}

	return merged
}

// Add returns a copy of s with msgs merged in by AddMessages.
func (s MessagesState) Add(msgs ...llm.Message) MessagesState {
	return MessagesState{Messages: AddMessages(s.Messages, msgs)}
}

// Merge implements stategraph.Mergeable: a new turn's messages are added
// to the thread's history.
func (s MessagesState) Merge(update MessagesState) MessagesState {
	return s.Add(update.Messages...)
}

// LastMessage returns the most recent message.
func (s MessagesState) LastMessage() (llm.Message, bool) {
	if len(s.Messages) == 0 {
		return llm.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone returns a deep copy of s.
func (s MessagesState) Clone() MessagesState {
	msgs := slices.Clone(s.Messages)
	for i := range msgs {
		msgs[i].ToolCalls = slices.Clone(msgs[i].ToolCalls)
	}
	return MessagesState{Messages: msgs}
}
