// Package store provides CheckpointManager implementations: an in-memory
// one for tests and single-process use, and SQL-backed ones (SQLite,
// MySQL) for durable, restart-surviving persistence.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/flowmesh/workflow"
)

// MemoryStore is an in-process CheckpointManager. Checkpoints are held by
// value in a map, so no serialization round-trip loses type fidelity;
// useful for tests and for hosts that never outlive the process.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]map[string]workflow.Checkpoint
	order       map[string][]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]map[string]workflow.Checkpoint),
		order:       make(map[string][]string),
	}
}

func (s *MemoryStore) Commit(_ context.Context, runID string, checkpoint workflow.Checkpoint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	if s.checkpoints[runID] == nil {
		s.checkpoints[runID] = make(map[string]workflow.Checkpoint)
	}
	s.checkpoints[runID][id] = checkpoint
	s.order[runID] = append(s.order[runID], id)
	return id, nil
}

func (s *MemoryStore) Lookup(_ context.Context, runID, checkpointID string) (workflow.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID, ok := s.checkpoints[runID]
	if !ok {
		return workflow.Checkpoint{}, fmt.Errorf("store: unknown run %q: %w", runID, workflow.ErrCheckpointNotFound)
	}
	cp, ok := byID[checkpointID]
	if !ok {
		return workflow.Checkpoint{}, fmt.Errorf("store: unknown checkpoint %q: %w", checkpointID, workflow.ErrCheckpointNotFound)
	}
	return cp, nil
}

func (s *MemoryStore) List(_ context.Context, runID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[runID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}
