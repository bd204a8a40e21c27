package workflow

// WorkflowEvent is the union of event kinds a RunHandle's event stream
// carries to the host (spec §4.6). Exactly one of the typed fields is
// populated per event; Kind names which.
type WorkflowEvent struct {
	Kind EventKind

	StepStarted         *StepStartedEvent
	SuperStepCompleted  *SuperStepCompletedEvent
	ExecutorInvoked     *ExecutorInvokedEvent
	ExecutorCompleted   *ExecutorCompletedEvent
	ExecutorFailed      *ExecutorFailedEvent
	Output              *OutputEvent
	RequestInfo         *RequestInfoEvent
	AgentUpdate         *AgentUpdateEvent
	Halted              *HaltedEvent
}

// EventKind discriminates WorkflowEvent's populated field.
type EventKind string

const (
	KindStepStarted        EventKind = "StepStarted"
	KindSuperStepCompleted EventKind = "SuperStepCompleted"
	KindExecutorInvoked    EventKind = "ExecutorInvoked"
	KindExecutorCompleted  EventKind = "ExecutorCompleted"
	KindExecutorFailed     EventKind = "ExecutorFailed"
	KindOutput             EventKind = "Output"
	KindRequestInfo        EventKind = "RequestInfo"
	KindAgentUpdate        EventKind = "AgentUpdate"
	KindHalted             EventKind = "Halted"
)

type StepStartedEvent struct {
	Step int
}

type SuperStepCompletedEvent struct {
	Step         int
	HasActions   bool
	HasRequests  bool
	CheckpointID string // empty when no checkpoint was written this step
}

type ExecutorInvokedEvent struct {
	ExecutorID string
}

type ExecutorCompletedEvent struct {
	ExecutorID   string
	EmittedCount int
}

type ExecutorFailedEvent struct {
	ExecutorID string
	Err        error
}

type OutputEvent struct {
	SourceID     string
	Value        any
	DeclaredType TypeID
}

type RequestInfoEvent struct {
	RequestID    string
	PortID       string
	Payload      any
	RequestType  TypeID
	ResponseType TypeID
}

type AgentUpdateEvent struct {
	ExecutorID string
	Payload    any
}

// HaltKind names why a run stopped making progress.
type HaltKind string

const (
	HaltCompleted       HaltKind = "COMPLETED"        // no further actions, no pending requests
	HaltAwaitingInput   HaltKind = "AWAITING_INPUT"    // no further actions, pending requests outstanding
	HaltCancelled       HaltKind = "CANCELLED"
)

type HaltedEvent struct {
	Reason HaltKind
}
