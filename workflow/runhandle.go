package workflow

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
)

// ExecutionMode selects how a RunHandle drives its Runner through
// supersteps (spec §3: "Run handle").
type ExecutionMode int

const (
	// ModeOffThread runs a background goroutine that drains every
	// superstep as soon as work is available, the default for a
	// standalone run driven by a host event loop.
	ModeOffThread ExecutionMode = iota

	// ModeLockstep performs no automatic driving: the host must call
	// Drive explicitly, one call per desired batch of supersteps.
	ModeLockstep

	// ModeSubworkflow shares ModeLockstep's driving semantics (no
	// automatic background loop): a standalone RunHandle built with this
	// mode only advances on an explicit Drive call. Joined sub-workflows
	// embedded via SubworkflowExecutor don't use a RunHandle at all — the
	// parent Runner's Step drives their bare *Runner directly, one
	// superstep per parent step (spec §4.3 step 4) — this mode exists for
	// a host that wants that same externally-driven discipline for a
	// standalone run.
	ModeSubworkflow
)

// RunStatus is the snapshot GetStatus returns.
type RunStatus struct {
	Running       bool
	AwaitingInput bool
	Halted        bool
	Failed        bool
}

// RunHandle is the host-facing surface of one workflow run (spec §4.6).
// Every operation is non-blocking except where noted.
type RunHandle struct {
	wf     *Workflow
	runID  string
	opts   Options
	mode   ExecutionMode
	runner *Runner

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}

	queue    *eventQueue
	watching atomic.Bool

	driveMu sync.Mutex

	mu            sync.Mutex
	started       bool
	ended         bool
	disposed      bool
	failed        bool
	failErr       error
	awaitingInput bool
}

// NewRun constructs a RunHandle bound to wf and starts its driving loop
// (for ModeOffThread; ModeLockstep/ModeSubworkflow wait for an explicit
// Drive call).
func NewRun(wf *Workflow, runID string, mode ExecutionMode, opts ...Option) (*RunHandle, error) {
	resolved, err := resolveOptions(Options{}, opts...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &RunHandle{
		wf:     wf,
		runID:  runID,
		opts:   resolved,
		mode:   mode,
		runner: newRunner(wf, runID, resolved),
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		queue:  newEventQueue(),
	}
	go h.loop()
	return h, nil
}

func (h *RunHandle) signalWake() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Enqueue delivers value to the run. Before the run has produced its
// first step, value's declared type (defaulting to its runtime type)
// must be accepted by the start executor's CanHandle, or
// ErrUnsupportedInputType is returned. An ExternalResponse is routed to
// the response queue instead of the start executor, equivalent to
// calling Respond (spec §4.6).
func (h *RunHandle) Enqueue(value any, declaredType ...TypeID) (bool, error) {
	if h.hasEnded() {
		return false, ErrRunEnded
	}
	if resp, ok := value.(ExternalResponse); ok {
		return h.Respond(resp)
	}

	var dt TypeID
	if len(declaredType) > 0 {
		dt = declaredType[0]
	} else {
		dt = typeIDOf(value)
	}
	start, _ := h.wf.Executor(h.wf.StartID())
	if !start.CanHandle(dt) {
		return false, ErrUnsupportedInputType
	}

	h.runner.seedStart(value, dt)
	h.mu.Lock()
	h.started = true
	h.mu.Unlock()
	h.signalWake()
	return true, nil
}

// Respond satisfies a previously surfaced ExternalRequest. The response
// payload's type must be assignable to its port's declared response
// type, checked here (before any state changes), or ErrTypeMismatch is
// returned (spec §4.4).
func (h *RunHandle) Respond(resp ExternalResponse) (bool, error) {
	if h.hasEnded() {
		return false, ErrRunEnded
	}
	port, ok := h.wf.Port(resp.PortID)
	if !ok {
		return false, ErrResponseWithoutRequest
	}
	if port.responseRType != nil {
		if !assignableFrom(reflect.TypeOf(resp.Data), port.responseRType) {
			return false, ErrTypeMismatch
		}
	} else if typeIDOf(resp.Data) != port.ResponseType {
		return false, ErrTypeMismatch
	}

	h.runner.seedResponse(resp)
	h.signalWake()
	return true, nil
}

// WatchEvents returns the run's asynchronous event stream. At most one
// enumerator may be active at a time; a second concurrent call returns
// ErrConcurrentWatch. The channel closes once a terminal event
// (ExecutorFailed or Halted with a non-AwaitingInput reason) has been
// delivered.
func (h *RunHandle) WatchEvents(ctx context.Context) (<-chan WorkflowEvent, error) {
	h.mu.Lock()
	disposed := h.disposed
	h.mu.Unlock()
	if disposed {
		return nil, ErrRunEnded
	}
	if !h.watching.CompareAndSwap(false, true) {
		return nil, ErrConcurrentWatch
	}
	out := make(chan WorkflowEvent)
	go func() {
		defer close(out)
		for {
			e, ok := h.queue.pull()
			if !ok {
				return
			}
			if e.Kind == kindRequestHalt {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// GetStatus reports the run's current lifecycle state.
func (h *RunHandle) GetStatus() RunStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return RunStatus{
		Running:       h.started && !h.ended && !h.awaitingInput,
		AwaitingInput: h.awaitingInput && !h.ended,
		Halted:        h.ended && !h.failed,
		Failed:        h.failed,
	}
}

// RestoreCheckpoint loads checkpointID from the configured
// CheckpointManager and imports it, following spec §4.5's restore
// protocol.
func (h *RunHandle) RestoreCheckpoint(ctx context.Context, checkpointID string) error {
	if h.opts.Checkpoints == nil {
		return errors.New("workflow: no checkpoint manager configured")
	}
	cp, err := h.opts.Checkpoints.Lookup(ctx, h.runID, checkpointID)
	if err != nil {
		return err
	}
	if cp.WorkflowFingerprint != h.wf.Fingerprint() {
		return ErrCheckpointIncompatible
	}

	h.runner.restore(cp)
	for _, id := range h.wf.executorIDs() {
		if e, ok := h.wf.executors[id]; ok {
			if reloadable, ok := e.(Reloadable); ok {
				reloadable.OnReload(ctx)
			}
		}
	}

	h.mu.Lock()
	h.started = true
	h.ended = false
	h.failed = false
	h.awaitingInput = false
	h.mu.Unlock()

	for _, e := range h.runner.republishPendingRequests() {
		h.queue.push(e)
	}
	h.signalWake()
	return nil
}

// Cancel stops the run: the in-flight step (if any) completes, but no
// further steps begin, and the event stream ends with a Halted(CANCELLED)
// event.
func (h *RunHandle) Cancel() {
	h.cancel()
}

// Dispose cancels the run (if not already ended) and releases its event
// queue. Enqueue, Respond and WatchEvents on a disposed RunHandle return
// ErrRunEnded.
func (h *RunHandle) Dispose() {
	h.mu.Lock()
	h.disposed = true
	h.mu.Unlock()
	h.cancel()
	<-h.done
}

func (h *RunHandle) hasEnded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ended
}

// loop is the run's single driving goroutine. In ModeOffThread it drains
// every superstep as soon as work arrives; in ModeLockstep/ModeSubworkflow
// it only watches for cancellation, leaving stepping to explicit Drive
// calls.
func (h *RunHandle) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.finish(HaltCancelled)
			return
		case <-h.wake:
			if h.mode != ModeOffThread {
				continue
			}
			if h.drive() {
				return
			}
		}
	}
}

// Drive pumps supersteps until no work remains. Intended for
// ModeLockstep and ModeSubworkflow callers; safe to call on an
// ModeOffThread handle too (e.g. to force progress without waiting for
// the background goroutine's next wake). Returns true if the run ended.
func (h *RunHandle) Drive() bool {
	return h.drive()
}

// drive runs supersteps until the runner has no queued work, then
// determines whether the run completed, is awaiting input, or failed.
// Returns true if the run reached a terminal state.
func (h *RunHandle) drive() bool {
	h.driveMu.Lock()
	defer h.driveMu.Unlock()
	for h.runner.hasWork() {
		select {
		case <-h.ctx.Done():
			h.finish(HaltCancelled)
			return true
		default:
		}

		completed, err := h.runner.Step(h.ctx, h.queue.push, h.checkpointFn())
		if err != nil {
			h.fail(err)
			return true
		}
		if h.opts.MaxSteps > 0 && completed.Step+1 >= h.opts.MaxSteps && h.runner.hasWork() {
			err := &RunError{Kind: FaultExecutor, Message: "max steps exceeded"}
			h.queue.push(WorkflowEvent{Kind: KindExecutorFailed, ExecutorFailed: &ExecutorFailedEvent{Err: err}})
			h.fail(err)
			return true
		}
	}

	if h.runner.rc.outstandingRequestCount() > 0 {
		h.pause()
		return false
	}
	h.finish(HaltCompleted)
	return true
}

func (h *RunHandle) checkpointFn() func() string {
	if h.opts.Checkpoints == nil || h.opts.CheckpointEvery <= 0 {
		return nil
	}
	return func() string {
		if h.runner.rc.step%h.opts.CheckpointEvery != 0 {
			return ""
		}
		cp := h.runner.snapshot("")
		id, err := h.opts.Checkpoints.Commit(h.ctx, h.runID, cp)
		if err != nil {
			return ""
		}
		h.opts.Metrics.IncCheckpoints(h.runID)
		return id
	}
}

// pause marks the run awaiting input and wakes the watcher loop with an
// internal (filtered) RequestHalt marker, without closing the event
// queue: the run may still resume once the host enqueues more input.
func (h *RunHandle) pause() {
	h.mu.Lock()
	h.awaitingInput = true
	h.mu.Unlock()
	h.queue.push(WorkflowEvent{Kind: kindRequestHalt})
}

// finish ends the run for good, publishing a terminal Halted event and
// closing the event queue.
func (h *RunHandle) finish(reason HaltKind) {
	h.mu.Lock()
	if h.ended {
		h.mu.Unlock()
		return
	}
	h.ended = true
	h.awaitingInput = false
	h.mu.Unlock()
	h.queue.push(WorkflowEvent{Kind: KindHalted, Halted: &HaltedEvent{Reason: reason}})
	h.queue.close()
}

// fail ends the run. Every caller must have already pushed the
// corresponding ExecutorFailed event onto h.queue (the scheduler does
// this itself so the event carries the failing executor's id; fail only
// owns the bookkeeping and closing the queue, per spec §7's "always
// emits a terminal event before closing").
func (h *RunHandle) fail(err error) {
	h.mu.Lock()
	if h.ended {
		h.mu.Unlock()
		return
	}
	h.ended = true
	h.failed = true
	h.failErr = err
	h.awaitingInput = false
	h.mu.Unlock()
	h.queue.close()
}
