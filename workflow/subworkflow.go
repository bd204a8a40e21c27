package workflow

import "context"

// SubworkflowExecutor is the built-in executor that embeds a child
// Workflow as one node of a parent graph (spec §2: "Runner context:
// ...queued subworkflow runners, joined children"; spec §4.3 step 4).
// Every message it receives is seeded straight into the child's start
// executor; the parent Runner's Step then drives the joined child for
// exactly one of its own supersteps per parent step, so a parent step
// always corresponds to exactly one child step (global step alignment).
// The child never spins a driving loop of its own — unlike a ModeOffThread
// RunHandle, it only ever advances when the parent's Step calls it.
type SubworkflowExecutor struct {
	id   string
	wf   *Workflow
	opts Options
}

// NewSubworkflowExecutor constructs a SubworkflowExecutor that joins wf
// under id. opts configures the child runner (checkpointing, metrics,
// emitter) independently of the parent's.
func NewSubworkflowExecutor(id string, wf *Workflow, opts ...Option) (*SubworkflowExecutor, error) {
	resolved, err := resolveOptions(Options{}, opts...)
	if err != nil {
		return nil, err
	}
	return &SubworkflowExecutor{id: id, wf: wf, opts: resolved}, nil
}

func (e *SubworkflowExecutor) ID() string { return e.id }

// CanHandle always reports true: the message is forwarded to the child's
// start executor, whose own CanHandle governs whether it is accepted.
func (e *SubworkflowExecutor) CanHandle(TypeID) bool { return true }

func (e *SubworkflowExecutor) IsOutputProducing() bool { return false }

func (e *SubworkflowExecutor) Execute(_ context.Context, msg any, declaredType TypeID, bc BoundContext) (any, error) {
	bcc, ok := bc.(*boundContext)
	if !ok {
		return nil, &RunError{Kind: FaultExecutor, Message: "subworkflow executor requires the built-in bound context", ExecutorID: e.id}
	}
	child := bcc.rc.joinChild(e.id, e.wf, e.opts)
	child.runner.seedStart(msg, declaredType)
	child.halted = false
	return nil, nil
}

// driveChildren steps every joined sub-workflow runner for exactly one of
// its own supersteps (spec §4.3 step 4), forwarding each child event to
// publish as an AgentUpdate tagged with the child's join id so the host
// can tell them apart from the parent's own lifecycle events without
// confusing a child's terminal event for the parent's.
func driveChildren(ctx context.Context, rc *runnerContext, publish func(WorkflowEvent)) {
	for _, id := range rc.childIDs() {
		c, ok := rc.child(id)
		if !ok || c.halted || !c.runner.hasWork() {
			continue
		}
		childPublish := func(e WorkflowEvent) {
			publish(WorkflowEvent{Kind: KindAgentUpdate, AgentUpdate: &AgentUpdateEvent{ExecutorID: id, Payload: e}})
		}
		_, err := c.runner.Step(ctx, childPublish, nil)
		if err != nil {
			c.halted = true
			publish(WorkflowEvent{Kind: KindExecutorFailed, ExecutorFailed: &ExecutorFailedEvent{ExecutorID: id, Err: err}})
			continue
		}
		if !c.runner.hasWork() && c.runner.rc.outstandingRequestCount() == 0 {
			c.halted = true
		}
	}
}
