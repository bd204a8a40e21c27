package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/flowmesh/workflow"
)

// SQLiteStore is a SQLite-backed CheckpointManager.
//
// Designed for development, testing, and single-process deployments that
// want checkpoints to survive a process restart without standing up a
// separate database server. Enables WAL mode; every Commit, Lookup and
// List runs under one mutex on a single connection, so they never run
// concurrently with one another.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures its checkpoints table exists. Pass ":memory:" for an
// ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			checkpoint_id   TEXT PRIMARY KEY,
			run_id          TEXT NOT NULL,
			step_number     INTEGER NOT NULL,
			idempotency_key TEXT NOT NULL,
			state           TEXT NOT NULL,
			sequence        INTEGER NOT NULL,
			created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create workflow_checkpoints: %w", err)
	}
	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_checkpoints_run_id ON workflow_checkpoints(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_checkpoints_run_seq ON workflow_checkpoints(run_id, sequence)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_checkpoints_idem ON workflow_checkpoints(run_id, idempotency_key)",
	} {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("store: create index: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Commit(ctx context.Context, runID string, checkpoint workflow.Checkpoint) (string, error) {
	blob, err := marshalCheckpoint(checkpoint)
	if err != nil {
		return "", fmt.Errorf("store: marshal checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var seq int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_checkpoints WHERE run_id = ?`, runID)
	if err := row.Scan(&seq); err != nil {
		return "", fmt.Errorf("store: count checkpoints: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_checkpoints (checkpoint_id, run_id, step_number, idempotency_key, state, sequence)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, runID, checkpoint.StepNumber, checkpoint.IdempotencyKey, blob, seq)
	if err != nil {
		return "", fmt.Errorf("store: insert checkpoint: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, runID, checkpointID string) (workflow.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blob []byte
	row := s.db.QueryRowContext(ctx, `
		SELECT state FROM workflow_checkpoints WHERE run_id = ? AND checkpoint_id = ?
	`, runID, checkpointID)
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return workflow.Checkpoint{}, fmt.Errorf("store: %q/%q: %w", runID, checkpointID, workflow.ErrCheckpointNotFound)
		}
		return workflow.Checkpoint{}, fmt.Errorf("store: lookup checkpoint: %w", err)
	}
	return unmarshalCheckpoint(blob)
}

func (s *SQLiteStore) List(ctx context.Context, runID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT checkpoint_id FROM workflow_checkpoints WHERE run_id = ? ORDER BY sequence ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan checkpoint id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
