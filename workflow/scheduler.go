package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/flowmesh/workflow/emit"
	"github.com/flowmesh/workflow/metrics"
)

// Runner drives a single Workflow run through its superstep loop (spec
// §4.3). It owns no goroutines of its own: RunHandle calls Step
// repeatedly from its own driving loop, so Runner stays simple to test in
// isolation, one step at a time.
type Runner struct {
	wf   *Workflow
	rc   *runnerContext
	opts Options
}

func newRunner(wf *Workflow, runID string, opts Options) *Runner {
	return &Runner{wf: wf, rc: newRunnerContext(wf, runID), opts: opts}
}

func (r *Runner) emitter() emit.Emitter         { return r.opts.Emitter }
func (r *Runner) metricsCollector() metrics.Collector { return r.opts.Metrics }

// seedStart delivers the run's initial input directly into the start
// executor's inbox.
func (r *Runner) seedStart(value any, declaredType TypeID) {
	r.rc.seed(r.wf.startID, newEnvelope(value, declaredType))
}

// seedResponse records a host-posted response to be matched at the next
// step boundary.
func (r *Runner) seedResponse(resp ExternalResponse) {
	r.rc.enqueueResponse(resp)
}

// hasWork reports whether a call to Step would find anything to do:
// messages queued for the current step, responses awaiting a match, or a
// joined sub-workflow still making progress (spec §3/§4.3: a run's
// termination condition includes "no joined sub-workflow has actions").
func (r *Runner) hasWork() bool {
	inbox := r.rc.inbox
	r.rc.mu.Lock()
	n := len(inbox)
	respN := len(r.rc.queuedResponses)
	r.rc.mu.Unlock()
	return n > 0 || respN > 0 || r.rc.anyChildHasActions()
}

// stepResult is the outcome of one superstep dispatch for a single
// recipient.
type stepResult struct {
	executorID   string
	emittedCount int
	err          error
}

// Step runs exactly one superstep: drains the current inbox, dispatches
// each recipient's FIFO queue concurrently with other recipients,
// applies emitted messages to next-step inboxes, drives any joined
// sub-workflow runners for one of their own supersteps (spec §4.3 step
// 4), publishes staged state, and advances the step counter. publish
// receives every WorkflowEvent produced along the way, in the order spec
// §4.6 promises.
func (r *Runner) Step(ctx context.Context, publish func(WorkflowEvent), checkpoint func() string) (SuperStepCompletedEvent, error) {
	step := r.rc.step
	publish(WorkflowEvent{Kind: KindStepStarted, StepStarted: &StepStartedEvent{Step: step}})

	r.rc.drainQueuedResponses()

	inbox := r.rc.drainCurrentInbox()
	r.metricsCollector().SetInflightExecutors(r.rc.runID, len(inbox))

	var wg sync.WaitGroup
	results := make(chan stepResult, len(inbox))
	var publishMu sync.Mutex
	safePublish := func(e WorkflowEvent) {
		publishMu.Lock()
		defer publishMu.Unlock()
		publish(e)
	}

	for recipient, envs := range inbox {
		recipient, envs := recipient, envs
		executor, ok := r.wf.Executor(recipient)
		if !ok {
			results <- stepResult{executorID: recipient, err: &RunError{Kind: FaultNoRoute, Message: "no such executor", ExecutorID: recipient}}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.runRecipient(ctx, step, recipient, executor, envs, safePublish)
		}()
	}
	wg.Wait()
	close(results)

	r.metricsCollector().SetInflightExecutors(r.rc.runID, 0)

	for res := range results {
		if res.err != nil {
			r.metricsCollector().IncFaults(r.rc.runID, string(FaultExecutor))
			publish(WorkflowEvent{Kind: KindExecutorFailed, ExecutorFailed: &ExecutorFailedEvent{ExecutorID: res.executorID, Err: res.err}})
			return SuperStepCompletedEvent{}, res.err
		}
	}

	driveChildren(ctx, r.rc, publish)

	r.rc.state.Publish()
	r.rc.advanceStep()

	hasActions := r.rc.pendingActionCount() > 0 || r.rc.anyChildHasActions()
	hasRequests := r.rc.outstandingRequestCount() > 0
	r.metricsCollector().SetQueueDepth(r.rc.runID, r.rc.pendingActionCount())
	r.metricsCollector().SetOutstandingRequests(r.rc.runID, r.rc.outstandingRequestCount())
	r.metricsCollector().IncSuperSteps(r.rc.runID)

	checkpointID := ""
	if checkpoint != nil {
		checkpointID = checkpoint()
	}

	completed := SuperStepCompletedEvent{Step: step, HasActions: hasActions, HasRequests: hasRequests, CheckpointID: checkpointID}
	publish(WorkflowEvent{Kind: KindSuperStepCompleted, SuperStepCompleted: &completed})
	return completed, nil
}

// runRecipient drains one recipient's envelopes strictly in FIFO order
// (spec §4.3: "deliveries to the same recipient are strictly sequential
// in enqueue order"), routing every emission and surfacing every event
// as it occurs.
func (r *Runner) runRecipient(ctx context.Context, step int, recipient string, executor Executor, envs []Envelope, publish func(WorkflowEvent)) stepResult {
	emittedCount := 0
	for _, env := range envs {
		publish(WorkflowEvent{Kind: KindExecutorInvoked, ExecutorInvoked: &ExecutorInvokedEvent{ExecutorID: recipient}})

		bc := newBoundContext(ctx, r.rc, step, recipient)
		start := time.Now()
		ret, err := executor.Execute(ctx, env.Message, env.DeclaredType, bc)
		status := "success"
		if err != nil {
			status = "error"
		}
		r.metricsCollector().RecordExecutorLatency(r.rc.runID, recipient, time.Since(start), status)
		r.emitter().Emit(emit.Event{RunID: r.rc.runID, Step: step, ExecutorID: recipient, Msg: "executor_complete", Meta: map[string]any{"status": status}})
		if err != nil {
			return stepResult{executorID: recipient, err: err}
		}

		emissions, events, requests := bc.drain()
		if ret != nil {
			emissions = append(emissions, emission{value: ret})
		}

		for _, em := range emissions {
			routeEmission(r.rc, recipient, em)
			emittedCount++
			if executor.IsOutputProducing() {
				declared := em.declaredType
				if declared == "" {
					declared = typeIDOf(em.value)
				}
				publish(WorkflowEvent{Kind: KindOutput, Output: &OutputEvent{SourceID: recipient, Value: em.value, DeclaredType: declared}})
			}
		}

		for _, payload := range events {
			publish(WorkflowEvent{Kind: KindAgentUpdate, AgentUpdate: &AgentUpdateEvent{ExecutorID: recipient, Payload: payload}})
		}

		for _, pr := range requests {
			portState, ok := r.rc.ports[pr.portID]
			if !ok {
				continue
			}
			req := ExternalRequest{RequestID: pr.requestID, PortID: pr.portID, Payload: pr.payload, RequestType: portState.descriptor.RequestType}
			_ = r.rc.recordRequest(pr.portID, req)
			publish(WorkflowEvent{Kind: KindRequestInfo, RequestInfo: &RequestInfoEvent{
				RequestID: req.RequestID, PortID: req.PortID, Payload: req.Payload,
				RequestType: portState.descriptor.RequestType, ResponseType: portState.descriptor.ResponseType,
			}})
		}

		publish(WorkflowEvent{Kind: KindExecutorCompleted, ExecutorCompleted: &ExecutorCompletedEvent{ExecutorID: recipient, EmittedCount: emittedCount}})
	}
	return stepResult{executorID: recipient, emittedCount: emittedCount}
}

// snapshot builds a Checkpoint capturing the run's current state, to be
// committed by the caller (spec §4.5).
func (r *Runner) snapshot(label string) Checkpoint {
	r.rc.mu.Lock()
	queued := make([]QueuedEnvelope, 0)
	for recipient, envs := range r.rc.inbox {
		for _, e := range envs {
			queued = append(queued, QueuedEnvelope{RecipientID: recipient, Envelope: e})
		}
	}
	step := r.rc.step
	responses := append([]ExternalResponse(nil), r.rc.queuedResponses...)
	r.rc.mu.Unlock()

	edgeState := make(map[int]map[string]any)
	for idx, buf := range r.rc.fanIn {
		edgeState[idx] = buf.snapshot()
	}

	cp := Checkpoint{
		RunID:               r.rc.runID,
		StepNumber:          step,
		WorkflowFingerprint: r.wf.Fingerprint(),
		RunnerState: RunnerState{
			Queued:            queued,
			OutstandingByPort: r.rc.snapshotOutstandingByPort(),
			QueuedResponses:   responses,
		},
		ScopeState: r.rc.state.Snapshot(),
		EdgeState:  edgeState,
		Timestamp:  time.Now(),
		Label:      label,
	}
	cp.IdempotencyKey = computeIdempotencyKey(r.rc.runID, step, &cp)
	return cp
}

// restore imports a Checkpoint into a freshly constructed Runner: runner
// state, scope state and fan-in edge state, and the step counter (spec
// §4.5). Fingerprint validation, executor reload notification, request
// republication and waking the run loop are done by the caller,
// RunHandle.RestoreCheckpoint.
func (r *Runner) restore(cp Checkpoint) {
	r.rc.mu.Lock()
	r.rc.inbox = make(map[string][]Envelope)
	for _, q := range cp.RunnerState.Queued {
		r.rc.inbox[q.RecipientID] = append(r.rc.inbox[q.RecipientID], q.Envelope)
	}
	r.rc.nextInbox = make(map[string][]Envelope)
	r.rc.queuedResponses = append([]ExternalResponse(nil), cp.RunnerState.QueuedResponses...)
	r.rc.step = cp.StepNumber
	r.rc.mu.Unlock()

	r.rc.restoreOutstandingByPort(cp.RunnerState.OutstandingByPort)
	r.rc.state.Restore(cp.ScopeState)

	r.rc.mu.Lock()
	r.rc.fanIn = make(map[int]*fanInBuffer)
	for idx, state := range cp.EdgeState {
		buf := newFanInBuffer(append([]string(nil), r.wf.edgeAt(idx).FanInSources...))
		buf.restore(state)
		r.rc.fanIn[idx] = buf
	}
	r.rc.mu.Unlock()
}

// republishPendingRequests returns a RequestInfo event for every request
// still outstanding after a restore, in FIFO order per port (spec §4.5
// step 5).
func (r *Runner) republishPendingRequests() []WorkflowEvent {
	var events []WorkflowEvent
	for portID, p := range r.rc.ports {
		for _, req := range p.outstanding {
			events = append(events, WorkflowEvent{Kind: KindRequestInfo, RequestInfo: &RequestInfoEvent{
				RequestID: req.RequestID, PortID: portID, Payload: req.Payload,
				RequestType: p.descriptor.RequestType, ResponseType: p.descriptor.ResponseType,
			}})
		}
	}
	return events
}
