package checkpoint

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps checkpoints in process memory.
// It backs the in-session conversation memory of the chat lessons.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]map[string]entry // threadID -> nodeID -> entry
	nextSeq map[string]int
	closed  bool
}

type entry struct {
	data      []byte
	sequence  int
	timestamp time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]map[string]entry),
		nextSeq: make(map[string]int),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(threadID, nodeID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.threads[threadID] == nil {
		m.threads[threadID] = make(map[string]entry)
	}
	m.nextSeq[threadID]++

	m.threads[threadID][nodeID] = entry{
		data:      append([]byte(nil), data...),
		sequence:  m.nextSeq[threadID],
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(threadID, nodeID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	e, ok := m.threads[threadID][nodeID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

// List implements Store.
func (m *MemoryStore) List(threadID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	thread := m.threads[threadID]
	infos := make([]Info, 0, len(thread))
	for nodeID, e := range thread {
		infos = append(infos, Info{
			ThreadID:  threadID,
			NodeID:    nodeID,
			Sequence:  e.sequence,
			Timestamp: e.timestamp,
			Size:      int64(len(e.data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// Threads implements Store.
func (m *MemoryStore) Threads() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(m.threads))
	for id, thread := range m.threads {
		if len(thread) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(threadID, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.threads[threadID], nodeID)
	return nil
}

// DeleteThread implements Store.
func (m *MemoryStore) DeleteThread(threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.threads, threadID)
	delete(m.nextSeq, threadID)
	return nil
}

// Close implements Store. Stored data is discarded.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.threads = nil
	m.nextSeq = nil
	return nil
}

// Len returns the number of checkpoints across all threads.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, thread := range m.threads {
		n += len(thread)
	}
	return n
}
