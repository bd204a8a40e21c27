package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flowmesh/workflow"
	"github.com/flowmesh/workflow/store"
)

func TestSQLiteStoreCommitLookupList(t *testing.T) {
	t.Run("a checkpoint committed to an in-memory database round-trips through Lookup", func(t *testing.T) {
		s, err := store.NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("unexpected error opening store: %v", err)
		}
		defer s.Close()

		cp := workflow.Checkpoint{
			RunID:               "run-1",
			StepNumber:          2,
			WorkflowFingerprint: "fp-1",
			IdempotencyKey:      "idem-1",
		}
		id, err := s.Commit(context.Background(), "run-1", cp)
		if err != nil {
			t.Fatalf("unexpected commit error: %v", err)
		}

		got, err := s.Lookup(context.Background(), "run-1", id)
		if err != nil {
			t.Fatalf("unexpected lookup error: %v", err)
		}
		if got.StepNumber != 2 || got.WorkflowFingerprint != "fp-1" {
			t.Fatalf("unexpected round-tripped checkpoint: %+v", got)
		}
	})

	t.Run("List returns ids in insertion order", func(t *testing.T) {
		s, err := store.NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		var ids []string
		for i := 0; i < 3; i++ {
			id, err := s.Commit(context.Background(), "run-2", workflow.Checkpoint{
				RunID:          "run-2",
				StepNumber:     i,
				IdempotencyKey: string(rune('a' + i)),
			})
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
				t.Fatalf("expected insertion order %v, got %v", ids, got)
			}
		}
	})

	t.Run("Lookup of an unknown checkpoint fails with ErrCheckpointNotFound", func(t *testing.T) {
		s, err := store.NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if _, err := s.Lookup(context.Background(), "run-3", "no-such-id"); !errors.Is(err, workflow.ErrCheckpointNotFound) {
			t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
		}
	})

	t.Run("two commits under the same run with the same idempotency key collide on the unique index", func(t *testing.T) {
		s, err := store.NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		cp := workflow.Checkpoint{RunID: "run-4", IdempotencyKey: "dup"}
		if _, err := s.Commit(context.Background(), "run-4", cp); err != nil {
			t.Fatalf("unexpected error on first commit: %v", err)
		}
		if _, err := s.Commit(context.Background(), "run-4", cp); err == nil {
			t.Fatalf("expected the second commit with a duplicate idempotency key to fail")
		}
	})
}
