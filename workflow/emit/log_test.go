package emit_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/flowmesh/workflow/emit"
)

func TestLogEmitterTextMode(t *testing.T) {
	t.Run("writes one key=value line per event", func(t *testing.T) {
		var buf bytes.Buffer
		l := emit.NewLogEmitter(&buf, false)

		l.Emit(emit.Event{RunID: "run-1", Step: 2, ExecutorID: "left", Msg: "step_completed"})

		line := buf.String()
		if !strings.Contains(line, "[step_completed]") {
			t.Fatalf("expected message prefix, got %q", line)
		}
		if !strings.Contains(line, "runID=run-1") || !strings.Contains(line, "step=2") || !strings.Contains(line, "executorID=left") {
			t.Fatalf("expected core fields in output, got %q", line)
		}
	})

	t.Run("meta entries are appended sorted by key", func(t *testing.T) {
		var buf bytes.Buffer
		l := emit.NewLogEmitter(&buf, false)

		l.Emit(emit.Event{Msg: "x", Meta: map[string]any{"zebra": 1, "apple": 2}})

		line := buf.String()
		appleIdx := strings.Index(line, "apple=2")
		zebraIdx := strings.Index(line, "zebra=1")
		if appleIdx == -1 || zebraIdx == -1 || appleIdx > zebraIdx {
			t.Fatalf("expected apple before zebra, got %q", line)
		}
	})

	t.Run("a nil writer defaults to stdout instead of panicking", func(t *testing.T) {
		l := emit.NewLogEmitter(nil, false)
		if l == nil {
			t.Fatalf("expected a non-nil LogEmitter")
		}
	})
}

func TestLogEmitterJSONMode(t *testing.T) {
	t.Run("writes one JSON object per event", func(t *testing.T) {
		var buf bytes.Buffer
		l := emit.NewLogEmitter(&buf, true)

		l.Emit(emit.Event{RunID: "run-2", Step: 1, ExecutorID: "ask", Msg: "executor_invoked"})

		var decoded emit.Event
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("expected valid JSON, got error %v for %q", err, buf.String())
		}
		if decoded.RunID != "run-2" || decoded.Step != 1 || decoded.ExecutorID != "ask" {
			t.Fatalf("unexpected decoded event: %+v", decoded)
		}
	})
}

func TestLogEmitterEmitBatchPreservesOrder(t *testing.T) {
	t.Run("EmitBatch emits every event in order", func(t *testing.T) {
		var buf bytes.Buffer
		l := emit.NewLogEmitter(&buf, false)

		err := l.EmitBatch(nil, []emit.Event{
			{Msg: "first"},
			{Msg: "second"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		firstIdx := strings.Index(buf.String(), "[first]")
		secondIdx := strings.Index(buf.String(), "[second]")
		if firstIdx == -1 || secondIdx == -1 || firstIdx > secondIdx {
			t.Fatalf("expected first before second, got %q", buf.String())
		}
	})
}

func TestNullEmitterDiscardsEverything(t *testing.T) {
	t.Run("Emit and EmitBatch never panic and EmitBatch returns nil", func(t *testing.T) {
		var n emit.NullEmitter
		n.Emit(emit.Event{Msg: "whatever"})
		if err := n.EmitBatch(nil, []emit.Event{{Msg: "a"}, {Msg: "b"}}); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	})
}
