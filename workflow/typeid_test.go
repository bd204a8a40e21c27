package workflow_test

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"github.com/flowmesh/workflow"
)

type sampleA struct{ N int }
type sampleB struct{ S string }

type customErr struct{}

func (customErr) Error() string { return "custom" }

func typeIDFor[T any]() workflow.TypeID {
	var zero T
	return workflow.TypeID(reflect.TypeOf(zero).String())
}

func TestExecutorHandlerResolution(t *testing.T) {
	t.Run("On scopes a handler to its declared type", func(t *testing.T) {
		exec := workflow.NewExecutor("echo")
		exec.Handle(workflow.On(func(_ context.Context, msg sampleA, bc workflow.BoundContext) (any, error) {
			return sampleB{S: "ok"}, nil
		}))

		if !exec.CanHandle(typeIDFor[sampleA]()) {
			t.Fatalf("expected executor to handle sampleA")
		}
		if exec.CanHandle(typeIDFor[sampleB]()) {
			t.Fatalf("did not expect executor to handle sampleB")
		}
	})

	t.Run("second Handle call for the same type replaces, not duplicates", func(t *testing.T) {
		exec := workflow.NewExecutor("e")
		exec.Handle(workflow.On(func(_ context.Context, msg sampleA, bc workflow.BoundContext) (any, error) {
			return 1, nil
		}))
		exec.Handle(workflow.On(func(_ context.Context, msg sampleA, bc workflow.BoundContext) (any, error) {
			return 2, nil
		}))

		ret, err := exec.Execute(context.Background(), sampleA{}, typeIDFor[sampleA](), noopBoundContext{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ret != 2 {
			t.Fatalf("expected the later Handle registration to win, got %v", ret)
		}
	})

	t.Run("assignable-from fallback matches a dynamic type satisfying a registered interface", func(t *testing.T) {
		exec := workflow.NewExecutor("iface")
		exec.Handle(workflow.On(func(_ context.Context, msg error, bc workflow.BoundContext) (any, error) {
			return "handled", nil
		}))

		// customErr's concrete TypeID was never registered, but it
		// implements error, which was; Execute's fallback resolution
		// should still find the handler.
		declared := typeIDFor[customErr]()
		ret, err := exec.Execute(context.Background(), customErr{}, declared, noopBoundContext{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ret != "handled" {
			t.Fatalf("expected assignable-from fallback to dispatch to the error handler, got %v", ret)
		}

		// CanHandle with no dynamic value to test only trusts an exact
		// TypeID match, so an unregistered concrete type id reports false.
		if exec.CanHandle(declared) {
			t.Fatalf("exact-match-only CanHandle should not report true for an unregistered type id")
		}
	})
}

// noopBoundContext is a minimal workflow.BoundContext for handler unit
// tests that don't need to inspect emitted effects.
type noopBoundContext struct{}

func (noopBoundContext) Context() context.Context          { return context.Background() }
func (noopBoundContext) RunID() string                     { return "test-run" }
func (noopBoundContext) Step() int                         { return 0 }
func (noopBoundContext) ExecutorID() string                { return "test-executor" }
func (noopBoundContext) RNG() *rand.Rand                    { return rand.New(rand.NewSource(1)) }
func (noopBoundContext) SendMessage(any, ...workflow.TypeID) {}
func (noopBoundContext) RaiseEvent(any)                     {}
func (noopBoundContext) ReadState(string, string) (any, bool) { return nil, false }
func (noopBoundContext) QueueStateUpdate(string, string, any) {}
func (noopBoundContext) QueueStateReset(string, string)       {}
func (noopBoundContext) PostRequest(string, any) (string, error) { return "", nil }
