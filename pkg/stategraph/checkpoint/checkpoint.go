package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the checkpoint format version.
const Version = 1

// Checkpoint is one persisted snapshot of a thread.
type Checkpoint struct {
	Version   int       `json:"version"`
	ThreadID  string    `json:"thread_id"`
	NodeID    string    `json:"node_id"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	// State is the JSON-encoded graph state after NodeID ran.
	State json.RawMessage `json:"state"`

	// NextNode is where the run was heading; END once a turn finished.
	NextNode string `json:"next_node"`

	Attempt    int    `json:"attempt"`
	PrevNodeID string `json:"prev_node_id,omitempty"`
}

func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// New creates a checkpoint. state must already be JSON.
func New(threadID, nodeID string, sequence int, state []byte, nextNode string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		ThreadID:  threadID,
		NodeID:    nodeID,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
		NextNode:  nextNode,
		Attempt:   1,
	}
}

func (c *Checkpoint) WithAttempt(attempt int) *Checkpoint {
	c.Attempt = attempt
	return c
}

func (c *Checkpoint) WithPrevNode(prevNodeID string) *Checkpoint {
	c.PrevNodeID = prevNodeID
	return c
}
