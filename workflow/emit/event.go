// Package emit provides pluggable observability for workflow execution,
// independent of the typed WorkflowEvent stream a RunHandle exposes to
// hosts (spec §4.1: "separate from (but fed by) the typed WorkflowEvent
// union the host consumes").
package emit

// Event is a flat, backend-agnostic observability record describing one
// occurrence during a run: a step boundary, an executor invocation, a
// checkpoint write, a fault.
type Event struct {
	RunID      string
	Step       int
	ExecutorID string
	Msg        string
	Meta       map[string]any
}
