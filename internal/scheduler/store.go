package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is a persisted task row. The trigger is stored in its textual
// form and reparsed on load, so a restart reconstructs the exact schedule.
type Record struct {
	ID          string
	Description string
	TriggerKind string
	TriggerVal  string
	NextRunTime time.Time
}

// Store is the durable job store backing the engine. All writes go through
// the engine's lock, so the store itself carries no synchronization.
type Store struct {
	db *sql.DB
}

const taskSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	trigger_kind TEXT NOT NULL,
	trigger_value TEXT NOT NULL,
	next_run_time DATETIME NOT NULL
)`

// OpenStore opens (and if needed creates) the job store at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}

	if _, err := db.Exec(taskSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize task store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists a new task.
func (s *Store) Insert(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, description, trigger_kind, trigger_value, next_run_time) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Description, r.TriggerKind, r.TriggerVal, r.NextRunTime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Delete removes a task. It reports whether a row was actually deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

// UpdateNextRun records the recomputed fire time after a run completes.
func (s *Store) UpdateNextRun(ctx context.Context, id string, next time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET next_run_time = ? WHERE id = ?`, next.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update next run time: %w", err)
	}
	return nil
}

// All returns every persisted task ordered by next fire time.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, trigger_kind, trigger_value, next_run_time FROM tasks ORDER BY next_run_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Description, &r.TriggerKind, &r.TriggerVal, &r.NextRunTime); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return records, nil
}

// Count returns the number of persisted tasks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}
