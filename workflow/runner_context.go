package workflow

import (
	"math/rand"
	"sort"
	"sync"
)

// runnerContext is the per-run mutable state a Runner's scheduler loop
// owns and hands out to handlers through boundContext. A Workflow is
// immutable and shared across runs; everything that changes as a run
// progresses lives here instead.
type runnerContext struct {
	wf    *Workflow
	runID string

	state *StateManager
	rng   *rand.Rand

	mu        sync.Mutex
	step      int
	inbox     map[string][]Envelope // current step's inbox, drained this step
	nextInbox map[string][]Envelope // being built for step+1

	fanIn map[int]*fanInBuffer // lazily constructed per fan-in edge index

	children map[string]*childRun // joined sub-workflow runners, keyed by SubworkflowExecutor id

	ports           map[string]*requestInputState // portID -> outstanding-request bookkeeping
	queuedResponses []ExternalResponse            // host-posted, not yet matched to a request
}

// childRun is one joined sub-workflow runner (spec §2 "Runner context:
// ...queued subworkflow runners, joined children"). The parent Runner's
// Step drives it for exactly one of its own supersteps per parent step
// (spec §4.3 step 4); it never spins a driving loop of its own.
type childRun struct {
	runner *Runner
	halted bool
}

func newRunnerContext(wf *Workflow, runID string) *runnerContext {
	rc := &runnerContext{
		wf:        wf,
		runID:     runID,
		state:     NewStateManager(),
		rng:       newRunRNG(runID),
		inbox:     make(map[string][]Envelope),
		nextInbox: make(map[string][]Envelope),
		fanIn:     make(map[int]*fanInBuffer),
		children:  make(map[string]*childRun),
		ports:     make(map[string]*requestInputState),
	}
	for id, p := range wf.ports {
		rc.ports[id] = &requestInputState{descriptor: p}
	}
	return rc
}

// seed places value directly into the current step's inbox for
// recipient, bypassing edge routing. Used for the initial run input and
// for host-enqueued values once a run is already awaiting its start
// executor's inbox to be drained (spec §4.6: enqueue).
func (rc *runnerContext) seed(recipient string, env Envelope) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.inbox[recipient] = append(rc.inbox[recipient], env)
}

// enqueueResponse records a host-posted ExternalResponse to be matched
// against an outstanding request at the next step boundary.
func (rc *runnerContext) enqueueResponse(resp ExternalResponse) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.queuedResponses = append(rc.queuedResponses, resp)
}

// route delivers env to recipient's NEXT-step inbox (spec §4.3 step 3:
// "emissions are routed... into step N+1's inbox, not step N's").
func (rc *runnerContext) route(recipient string, env Envelope) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.nextInbox[recipient] = append(rc.nextInbox[recipient], env)
}

// fanInBufferFor lazily constructs the live buffer for fan-in edge idx.
func (rc *runnerContext) fanInBufferFor(idx int) *fanInBuffer {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	b, ok := rc.fanIn[idx]
	if !ok {
		b = newFanInBuffer(append([]string(nil), rc.wf.edgeAt(idx).FanInSources...))
		rc.fanIn[idx] = b
	}
	return b
}

// joinChild returns the joined sub-workflow runner for a SubworkflowExecutor
// id, lazily constructing (and so "joining", spec §2) one the first time
// childID is seen.
func (rc *runnerContext) joinChild(childID string, wf *Workflow, opts Options) *childRun {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	c, ok := rc.children[childID]
	if !ok {
		c = &childRun{runner: newRunner(wf, rc.runID+"/"+childID, opts)}
		rc.children[childID] = c
	}
	return c
}

// childIDs returns every joined child's id, in a stable (sorted) order so
// Step drives them deterministically.
func (rc *runnerContext) childIDs() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	ids := make([]string, 0, len(rc.children))
	for id := range rc.children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (rc *runnerContext) child(childID string) (*childRun, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	c, ok := rc.children[childID]
	return c, ok
}

// anyChildHasActions reports whether a joined sub-workflow still has
// queued work, part of the termination condition of spec §3/§4.3: a run
// only halts once no messages remain, no requests are outstanding, AND
// no joined sub-workflow has actions.
func (rc *runnerContext) anyChildHasActions() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for _, c := range rc.children {
		if !c.halted && c.runner.hasWork() {
			return true
		}
	}
	return false
}

// drainCurrentInbox returns and clears the current step's inbox, grouped
// by recipient, snapshotting it for the scheduler to dispatch.
func (rc *runnerContext) drainCurrentInbox() map[string][]Envelope {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := rc.inbox
	rc.inbox = make(map[string][]Envelope)
	return out
}

// advanceStep promotes the staged next-step inbox to the current inbox
// and increments the step counter, called once per completed superstep.
func (rc *runnerContext) advanceStep() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.inbox = rc.nextInbox
	rc.nextInbox = make(map[string][]Envelope)
	rc.step++
}

// pendingActionCount reports whether the next-step inbox holds any
// envelopes, used for SuperStepCompleted.HasActions and termination
// detection (spec §4.3).
func (rc *runnerContext) pendingActionCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	n := 0
	for _, envs := range rc.nextInbox {
		n += len(envs)
	}
	return n
}

// outstandingRequestCount sums outstanding requests across every port.
func (rc *runnerContext) outstandingRequestCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	n := 0
	for _, p := range rc.ports {
		n += len(p.outstanding)
	}
	return n
}

// drainQueuedResponses matches queued ExternalResponse values against
// outstanding requests (by RequestID when given, otherwise FIFO oldest
// on PortID) and seeds the matched response into the owning
// RequestInputExecutor's current inbox. Unmatched responses are dropped
// with ErrResponseWithoutRequest reported to the caller (spec §4.4).
func (rc *runnerContext) drainQueuedResponses() []error {
	rc.mu.Lock()
	responses := rc.queuedResponses
	rc.queuedResponses = nil
	rc.mu.Unlock()

	var errs []error
	for _, resp := range responses {
		port, ok := rc.ports[resp.PortID]
		if !ok {
			errs = append(errs, ErrResponseWithoutRequest)
			continue
		}
		idx := matchOutstanding(port.outstanding, resp.RequestID)
		if idx < 0 {
			errs = append(errs, ErrResponseWithoutRequest)
			continue
		}
		port.outstanding = append(port.outstanding[:idx], port.outstanding[idx+1:]...)

		ownerID, ok := rc.wf.portOwnerID(resp.PortID)
		if !ok {
			errs = append(errs, ErrResponseWithoutRequest)
			continue
		}
		rc.seed(ownerID, newEnvelope(resp, typeID[ExternalResponse]()))
	}
	return errs
}

// matchOutstanding returns the index within outstanding to remove: the
// entry whose RequestID equals requestID, if given, else the oldest
// (index 0), or -1 if outstanding is empty or no match is found.
func matchOutstanding(outstanding []ExternalRequest, requestID string) int {
	if len(outstanding) == 0 {
		return -1
	}
	if requestID == "" {
		return 0
	}
	for i, r := range outstanding {
		if r.RequestID == requestID {
			return i
		}
	}
	return -1
}

// recordRequest appends a new outstanding request to portID's FIFO,
// reporting ErrExecutorNotFound if portID is unregistered.
func (rc *runnerContext) recordRequest(portID string, req ExternalRequest) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	p, ok := rc.ports[portID]
	if !ok {
		return ErrExecutorNotFound
	}
	p.outstanding = append(p.outstanding, req)
	return nil
}

// snapshotOutstandingByPort returns a defensive copy of every port's
// outstanding requests, for Checkpoint.RunnerState.
func (rc *runnerContext) snapshotOutstandingByPort() map[string][]ExternalRequest {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make(map[string][]ExternalRequest, len(rc.ports))
	for id, p := range rc.ports {
		out[id] = append([]ExternalRequest(nil), p.outstanding...)
	}
	return out
}

// restoreOutstandingByPort replaces every port's outstanding requests
// wholesale, used on checkpoint restore.
func (rc *runnerContext) restoreOutstandingByPort(snapshot map[string][]ExternalRequest) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for id, p := range rc.ports {
		p.outstanding = append([]ExternalRequest(nil), snapshot[id]...)
	}
}
