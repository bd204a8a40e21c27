package workflow

import "testing"

func TestFanInBufferDoubleFire(t *testing.T) {
	t.Run("a source firing twice before the round completes buffers the second firing for the next round", func(t *testing.T) {
		b := newFanInBuffer([]string{"a", "b"})

		if _, ready := b.deliver("a", "a1"); ready {
			t.Fatalf("expected round to be incomplete after only one source")
		}
		if _, ready := b.deliver("a", "a2"); ready {
			t.Fatalf("expected round to remain incomplete after a's second firing")
		}

		composite, ready := b.deliver("b", "b1")
		if !ready {
			t.Fatalf("expected round to complete once b arrives")
		}
		if composite.Messages[0] != "a1" || composite.Messages[1] != "b1" {
			t.Fatalf("expected composite [a1 b1], got %v", composite.Messages)
		}

		// a's buffered second firing should already count as arrived for
		// the next round; b has not fired again, so the round stays open.
		composite, ready = b.deliver("b", "b2")
		if !ready {
			t.Fatalf("expected next round to complete once b fires again")
		}
		if composite.Messages[0] != "a2" || composite.Messages[1] != "b2" {
			t.Fatalf("expected composite [a2 b2], got %v", composite.Messages)
		}
	})

	t.Run("snapshot and restore round-trip a pending queue", func(t *testing.T) {
		b := newFanInBuffer([]string{"a", "b"})
		b.deliver("a", "a1")
		b.deliver("a", "a2")
		b.deliver("a", "a3")

		snap := b.snapshot()

		restored := newFanInBuffer([]string{"a", "b"})
		restored.restore(snap)

		composite, ready := restored.deliver("b", "b1")
		if !ready {
			t.Fatalf("expected round to complete")
		}
		if composite.Messages[0] != "a1" || composite.Messages[1] != "b1" {
			t.Fatalf("expected composite [a1 b1], got %v", composite.Messages)
		}

		composite, ready = restored.deliver("b", "b2")
		if !ready {
			t.Fatalf("expected second round to complete from the restored pending queue")
		}
		if composite.Messages[0] != "a2" {
			t.Fatalf("expected a2 to carry into the second round, got %v", composite.Messages[0])
		}
	})
}
