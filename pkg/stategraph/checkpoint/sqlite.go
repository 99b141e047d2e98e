package checkpoint

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS thread_checkpoints (
	thread_id  TEXT    NOT NULL,
	node_id    TEXT    NOT NULL,
	sequence   INTEGER NOT NULL,
	created_at TEXT    NOT NULL,
	data       BLOB    NOT NULL,
	PRIMARY KEY (thread_id, node_id)
);
CREATE INDEX IF NOT EXISTS idx_thread_checkpoints_seq
	ON thread_checkpoints(thread_id, sequence);
`

// SQLiteStore persists checkpoints in SQLite so conversations survive a
// restart. Uses the pure-Go modernc driver.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (or creates) a database at path. Use ":memory:" for
// a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases from splitting per conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(threadID, nodeID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO thread_checkpoints (thread_id, node_id, sequence, created_at, data)
		VALUES (?, ?,
			COALESCE((SELECT MAX(sequence) FROM thread_checkpoints WHERE thread_id = ?), 0) + 1,
			?, ?)
		ON CONFLICT(thread_id, node_id) DO UPDATE SET
			sequence = (SELECT MAX(sequence) FROM thread_checkpoints WHERE thread_id = excluded.thread_id) + 1,
			created_at = excluded.created_at,
			data = excluded.data
	`, threadID, nodeID, threadID, time.Now().UTC().Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(threadID, nodeID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM thread_checkpoints WHERE thread_id = ? AND node_id = ?`,
		threadID, nodeID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return data, nil
}

// List implements Store.
func (s *SQLiteStore) List(threadID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT node_id, sequence, created_at, LENGTH(data)
		FROM thread_checkpoints
		WHERE thread_id = ?
		ORDER BY sequence
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		info := Info{ThreadID: threadID}
		var created string
		if err := rows.Scan(&info.NodeID, &info.Sequence, &created, &info.Size); err != nil {
			return nil, fmt.Errorf("scan checkpoint info: %w", err)
		}
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return infos, nil
}

// Threads implements Store.
func (s *SQLiteStore) Threads() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`SELECT DISTINCT thread_id FROM thread_checkpoints ORDER BY thread_id`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete implements Store.
func (s *SQLiteStore) Delete(threadID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.Exec(
		`DELETE FROM thread_checkpoints WHERE thread_id = ? AND node_id = ?`, threadID, nodeID,
	); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DeleteThread implements Store.
func (s *SQLiteStore) DeleteThread(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.Exec(`DELETE FROM thread_checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("delete thread checkpoints: %w", err)
	}
	return nil
}

// Close implements Store. Safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
