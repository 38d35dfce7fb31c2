// Package memory provides the durable conversation log. Every user message
// and assistant reply is appended to a sqlite-backed store; the most recent
// turns are replayed as context for each new request.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Turn roles as persisted. The assistant role is stored as "ai".
const (
	RoleUser      = "user"
	RoleAssistant = "ai"
)

// Turn is a single persisted conversation turn. Turns are append-only and
// totally ordered by their auto-increment id.
type Turn struct {
	ID        int64
	Role      string
	Content   string
	Timestamp time.Time
}

// Store is the durable conversation log. Appends are serialized so turn
// ordering is never corrupted under concurrent writers; reads are
// snapshot-consistent at call time.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const memorySchema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Open opens (and if needed creates) the conversation store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	if _, err := db.Exec(memorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists a turn. Appending empty content is a silent no-op: an
// assistant turn must never be recorded with empty content.
func (s *Store) Append(ctx context.Context, role, content string) error {
	if content == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (role, content, timestamp) VALUES (?, ?, ?)`,
		role, content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// Recent returns the last limit turns in oldest-to-newest order. The store
// retrieves newest-first by id and reverses before returning, so callers
// always see chronological order.
func (s *Store) Recent(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, timestamp FROM messages ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.Role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent turns: %w", err)
	}

	// Newest-first from the query; flip to oldest-first for the context window.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// Count returns the total number of persisted turns.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return n, nil
}
