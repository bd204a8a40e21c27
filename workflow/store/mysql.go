package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/flowmesh/workflow"
)

// MySQLStore is a MySQL/MariaDB-backed CheckpointManager, for deployments
// where multiple hosts or processes need a shared, durable view of run
// checkpoints.
//
// The DSN format is the usual go-sql-driver/mysql one:
//
//	user:password@tcp(localhost:3306)/workflows?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment.
type MySQLStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewMySQLStore opens a MySQL connection pool and ensures the checkpoints
// table exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			id              BIGINT AUTO_INCREMENT PRIMARY KEY,
			checkpoint_id   VARCHAR(255) NOT NULL UNIQUE,
			run_id          VARCHAR(255) NOT NULL,
			step_number     INT NOT NULL,
			idempotency_key VARCHAR(255) NOT NULL,
			state           JSON NOT NULL,
			sequence        INT NOT NULL,
			created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_run_id (run_id),
			INDEX idx_run_sequence (run_id, sequence),
			UNIQUE KEY unique_run_idempotency (run_id, idempotency_key)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create workflow_checkpoints: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) Commit(ctx context.Context, runID string, checkpoint workflow.Checkpoint) (string, error) {
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

func (s *MySQLStore) Lookup(ctx context.Context, runID, checkpointID string) (workflow.Checkpoint, error) {
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

func (s *MySQLStore) List(ctx context.Context, runID string) ([]string, error) {
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
