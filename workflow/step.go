package workflow

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// emission is one value a handler sent via SendMessage, paired with its
// declared type (empty meaning "default to runtime type").
type emission struct {
	value        any
	declaredType TypeID
}

// postedRequest is one ExternalRequest a handler surfaced via PostRequest
// during its invocation.
type postedRequest struct {
	portID    string
	requestID string
	payload   any
}

// boundContext is the concrete BoundContext handed to exactly one
// handler invocation. Every effect (sends, raised events, posted
// requests) is buffered here rather than applied immediately, so step
// N's emissions stay invisible until the scheduler promotes them into
// step N+1 after the whole step completes (spec §4.3).
type boundContext struct {
	ctx        context.Context
	rc         *runnerContext
	runID      string
	step       int
	executorID string

	mu        sync.Mutex
	emissions []emission
	events    []any
	requests  []postedRequest
}

func newBoundContext(ctx context.Context, rc *runnerContext, step int, executorID string) *boundContext {
	return &boundContext{ctx: ctx, rc: rc, runID: rc.runID, step: step, executorID: executorID}
}

func (b *boundContext) Context() context.Context { return b.ctx }
func (b *boundContext) RunID() string            { return b.runID }
func (b *boundContext) Step() int                { return b.step }
func (b *boundContext) ExecutorID() string        { return b.executorID }
func (b *boundContext) RNG() *rand.Rand           { return b.rc.rng }

func (b *boundContext) SendMessage(value any, declaredType ...TypeID) {
	var dt TypeID
	if len(declaredType) > 0 {
		dt = declaredType[0]
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emissions = append(b.emissions, emission{value: value, declaredType: dt})
}

func (b *boundContext) RaiseEvent(payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, payload)
}

func (b *boundContext) ReadState(scope, key string) (any, bool) {
	return b.rc.state.Read(scope, key)
}

func (b *boundContext) QueueStateUpdate(scope, key string, value any) {
	b.rc.state.QueueUpdate(scope, key, value)
}

func (b *boundContext) QueueStateReset(scope, key string) {
	b.rc.state.QueueReset(scope, key)
}

func (b *boundContext) PostRequest(portID string, payload any) (string, error) {
	if _, ok := b.rc.ports[portID]; !ok {
		return "", ErrExecutorNotFound
	}
	id := uuid.NewString()
	b.mu.Lock()
	b.requests = append(b.requests, postedRequest{portID: portID, requestID: id, payload: payload})
	b.mu.Unlock()
	return id, nil
}

// drain returns and clears everything buffered on b, for the scheduler
// to apply once the invocation that produced them has returned.
func (b *boundContext) drain() ([]emission, []any, []postedRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	emissions, events, requests := b.emissions, b.events, b.requests
	b.emissions, b.events, b.requests = nil, nil, nil
	return emissions, events, requests
}

// routeEmission applies one emitted value to every Direct/FanOut/FanIn
// edge registered for source, staging deliveries into the next step's
// inbox (spec §4.2).
func routeEmission(rc *runnerContext, source string, em emission) {
	value := em.value
	declared := em.declaredType
	if declared == "" {
		declared = typeIDOf(value)
	}

	for _, edge := range rc.wf.outgoing(source) {
		switch edge.Kind {
		case EdgeDirect:
			if edge.Predicate != nil && !edge.Predicate(value) {
				continue
			}
			rc.route(edge.TargetIDs[0], Envelope{Message: value, DeclaredType: declared})
		case EdgeFanOut:
			var targets []string
			if edge.Partition != nil {
				targets = edge.Partition(value, edge.TargetIDs)
			} else {
				targets = edge.TargetIDs
			}
			for _, t := range targets {
				rc.route(t, Envelope{Message: value, DeclaredType: declared})
			}
		}
	}

	for _, idx := range rc.wf.fanInEdgesFor(source) {
		edge := rc.wf.edgeAt(idx)
		buf := rc.fanInBufferFor(idx)
		if composite, ready := buf.deliver(source, value); ready {
			rc.route(edge.FanInTarget, Envelope{Message: composite, DeclaredType: typeID[Composite]()})
		}
	}
}
