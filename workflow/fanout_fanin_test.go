package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/flowmesh/workflow"
)

func buildFanOutFanInWorkflow(t *testing.T) *workflow.Workflow {
	t.Helper()

	split := workflow.NewExecutor("split")
	split.Handle(workflow.OnUnit(func(_ context.Context, msg int, bc workflow.BoundContext) error {
		bc.SendMessage(msg)
		return nil
	}))

	left := workflow.NewExecutor("left")
	left.Handle(workflow.On(func(_ context.Context, msg int, bc workflow.BoundContext) (any, error) {
		return msg + 1, nil
	}))
	right := workflow.NewExecutor("right")
	right.Handle(workflow.On(func(_ context.Context, msg int, bc workflow.BoundContext) (any, error) {
		return msg * 10, nil
	}))

	join := workflow.NewExecutor("join").AsOutput()
	join.Handle(workflow.On(func(_ context.Context, msg workflow.Composite, bc workflow.BoundContext) (any, error) {
		sum := 0
		for _, m := range msg.Messages {
			sum += m.(int)
		}
		return sum, nil
	}))

	wf, err := workflow.NewBuilder().
		AddExecutor(split).
		AddExecutor(left).
		AddExecutor(right).
		AddExecutor(join).
		SetStart("split").
		AddEdge(workflow.FanOutEdge("split", []string{"left", "right"}, func(msg any, candidates []string) []string {
			return candidates
		})).
		AddEdge(workflow.FanInEdge([]string{"left", "right"}, "join")).
		Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return wf
}

func TestFanOutThenFanIn(t *testing.T) {
	t.Run("both branches contribute before join fires exactly once", func(t *testing.T) {
		wf := buildFanOutFanInWorkflow(t)
		h, err := workflow.NewRun(wf, "fanrun-1", workflow.ModeOffThread)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer h.Dispose()

		ch, err := h.WatchEvents(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := h.Enqueue(5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events := drainEvents(t, ch, 2*time.Second)

		var outputs []int
		for _, e := range events {
			if e.Kind == workflow.KindOutput && e.Output != nil {
				if v, ok := e.Output.Value.(int); ok {
					outputs = append(outputs, v)
				}
			}
		}
		// left: 5+1=6, right: 5*10=50, join sum=56.
		if len(outputs) != 1 || outputs[0] != 56 {
			t.Fatalf("expected exactly one join output of 56, got %v", outputs)
		}
	})
}
