// Package checkpoint persists per-thread snapshots of graph state.
//
// A thread is one conversation. The executor saves a checkpoint after every
// node, keyed by (threadID, nodeID); the checkpoint with the highest
// sequence is the thread's current state.
package checkpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store persists checkpoints.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores data for a thread at a node, replacing any earlier
	// checkpoint for the same pair and giving it the next sequence number.
	Save(threadID, nodeID string, data []byte) error

	// Load returns ErrNotFound if the checkpoint doesn't exist.
	Load(threadID, nodeID string) ([]byte, error)

	// List returns a thread's checkpoints ordered by sequence.
	// An unknown thread yields an empty slice, not an error.
	List(threadID string) ([]Info, error)

	// Threads returns the IDs of all threads with checkpoints, sorted.
	Threads() ([]string, error)

	// Delete is a no-op if the checkpoint doesn't exist.
	Delete(threadID, nodeID string) error

	// DeleteThread removes every checkpoint of a thread.
	DeleteThread(threadID string) error

	Close() error
}

// Info describes a checkpoint without its payload.
type Info struct {
	ThreadID  string
	NodeID    string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)

// Latest loads the most recent checkpoint of a thread.
// Returns ErrNotFound if the thread has none.
func Latest(store Store, threadID string) (Info, []byte, error) {
	infos, err := store.List(threadID)
	if err != nil {
		return Info{}, nil, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(infos) == 0 {
		return Info{}, nil, ErrNotFound
	}

	info := infos[len(infos)-1]
	data, err := store.Load(threadID, info.NodeID)
	if err != nil {
		return Info{}, nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return info, data, nil
}

// Open creates a store from a location string:
//
//	""  or "memory"         in-process MemoryStore
//	"sqlite::memory:"       in-memory SQLite
//	"sqlite:<path>"         SQLite database file
//	"<path>"                SQLite database file
func Open(location string) (Store, error) {
	switch {
	case location == "" || location == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(location, "sqlite:"):
		return NewSQLiteStore(strings.TrimPrefix(location, "sqlite:"))
	default:
		return NewSQLiteStore(location)
	}
}
