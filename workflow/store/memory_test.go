package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flowmesh/workflow"
	"github.com/flowmesh/workflow/store"
)

func TestMemoryStoreCommitLookupList(t *testing.T) {
	t.Run("a committed checkpoint can be looked up by the id Commit returns", func(t *testing.T) {
		s := store.NewMemoryStore()
		cp := workflow.Checkpoint{RunID: "run-1", StepNumber: 3, WorkflowFingerprint: "fp-1"}

		id, err := s.Commit(context.Background(), "run-1", cp)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id == "" {
			t.Fatalf("expected a non-empty checkpoint id")
		}

		got, err := s.Lookup(context.Background(), "run-1", id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.StepNumber != 3 || got.WorkflowFingerprint != "fp-1" {
			t.Fatalf("unexpected checkpoint: %+v", got)
		}
	})

	t.Run("List returns ids in commit order", func(t *testing.T) {
		s := store.NewMemoryStore()
		var ids []string
		for i := 0; i < 3; i++ {
			id, err := s.Commit(context.Background(), "run-2", workflow.Checkpoint{RunID: "run-2", StepNumber: i})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ids = append(ids, id)
		}

		got, err := s.List(context.Background(), "run-2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 ids, got %d", len(got))
		}
		for i := range ids {
			if got[i] != ids[i] {
				t.Fatalf("expected commit order %v, got %v", ids, got)
			}
		}
	})

	t.Run("List on an unknown run returns an empty slice, not an error", func(t *testing.T) {
		s := store.NewMemoryStore()
		got, err := s.List(context.Background(), "no-such-run")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no ids, got %v", got)
		}
	})

	t.Run("Lookup on an unknown run or checkpoint fails with ErrCheckpointNotFound", func(t *testing.T) {
		s := store.NewMemoryStore()
		if _, err := s.Lookup(context.Background(), "no-such-run", "x"); !errors.Is(err, workflow.ErrCheckpointNotFound) {
			t.Fatalf("expected ErrCheckpointNotFound for unknown run, got %v", err)
		}

		id, err := s.Commit(context.Background(), "run-3", workflow.Checkpoint{RunID: "run-3"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = id
		if _, err := s.Lookup(context.Background(), "run-3", "no-such-checkpoint"); !errors.Is(err, workflow.ErrCheckpointNotFound) {
			t.Fatalf("expected ErrCheckpointNotFound for unknown checkpoint, got %v", err)
		}
	})

	t.Run("runs are isolated from one another", func(t *testing.T) {
		s := store.NewMemoryStore()
		idA, err := s.Commit(context.Background(), "run-a", workflow.Checkpoint{RunID: "run-a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.Lookup(context.Background(), "run-b", idA); !errors.Is(err, workflow.ErrCheckpointNotFound) {
			t.Fatalf("expected checkpoints committed under one run to be invisible under another, got %v", err)
		}
	})
}
