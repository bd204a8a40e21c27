package workflow

import "errors"

// Sentinel errors for the core error taxonomy of spec §7. Callers should
// use errors.Is against these, or errors.As against *RunError for the
// executor-id/kind-carrying variants.
var (
	// ErrUnsupportedInputType is returned by RunHandle.Enqueue when the
	// run has not started and the value's declared type does not match
	// the start executor's input contract.
	ErrUnsupportedInputType = errors.New("workflow: unsupported input type for start executor")

	// ErrTypeMismatch is returned by RunHandle.Respond when a response
	// payload's type is incompatible with its port's declared response
	// type. An explicit declared type passed to Enqueue is not checked
	// against the value's runtime type.
	ErrTypeMismatch = errors.New("workflow: type mismatch")

	// ErrConcurrentWatch is returned when a second event-stream enumerator
	// is requested while one is already active.
	ErrConcurrentWatch = errors.New("workflow: event stream already has an active watcher")

	// ErrCheckpointIncompatible is returned when restoring a checkpoint
	// whose workflow fingerprint does not match the current workflow.
	ErrCheckpointIncompatible = errors.New("workflow: checkpoint fingerprint incompatible with current workflow")

	// ErrRunEnded is returned for operations attempted on a disposed or
	// halted run.
	ErrRunEnded = errors.New("workflow: run has ended")

	// ErrNoStartExecutor is returned when Build is called without a start
	// executor designated.
	ErrNoStartExecutor = errors.New("workflow: no start executor designated")

	// ErrExecutorNotFound is returned when an edge or port references an
	// executor id that was never added to the builder.
	ErrExecutorNotFound = errors.New("workflow: executor not found")

	// ErrDuplicateExecutor is returned when two executors are added under
	// the same id.
	ErrDuplicateExecutor = errors.New("workflow: duplicate executor id")

	// ErrNoHandler is returned when an executor has no handler assignable
	// from a delivered envelope's declared type.
	ErrNoHandler = errors.New("workflow: no handler for declared type")

	// ErrResponseWithoutRequest is returned when an external response
	// cannot be matched to any outstanding request on its port.
	ErrResponseWithoutRequest = errors.New("workflow: response without matching outstanding request")

	// ErrCheckpointNotFound is returned by a CheckpointManager.Lookup for
	// an unknown checkpoint id.
	ErrCheckpointNotFound = errors.New("workflow: checkpoint not found")
)

// FaultKind classifies why a run terminated abnormally.
type FaultKind string

const (
	FaultExecutor    FaultKind = "EXECUTOR_FAULT"
	FaultNoRoute     FaultKind = "NO_ROUTE"
	FaultInvalidEdge FaultKind = "INVALID_EDGE"
)

// RunError wraps a fault surfaced from within a run (spec §7:
// "ExecutorFault ... Emits ExecutorFailed, cancels the run, terminates
// event stream"), carrying enough context for a host to log or re-raise
// it without string-parsing a message.
type RunError struct {
	Kind       FaultKind
	Message    string
	ExecutorID string
	Cause      error
}

func (e *RunError) Error() string {
	if e.ExecutorID != "" {
		return "workflow: executor " + e.ExecutorID + ": " + e.Message
	}
	return "workflow: " + e.Message
}

func (e *RunError) Unwrap() error { return e.Cause }
