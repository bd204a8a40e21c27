package workflow

import "sync"

// EdgeKind distinguishes the three edge shapes of spec §4.2.
type EdgeKind int

const (
	// EdgeDirect delivers to a single target when an optional predicate
	// passes (or unconditionally, when no predicate is set).
	EdgeDirect EdgeKind = iota
	// EdgeFanOut delivers to exactly the subset of targets a partition
	// function selects, out of a fixed candidate list.
	EdgeFanOut
	// EdgeFanIn buffers one message per source until every source has
	// delivered once in the current round, then releases a Composite to
	// a single target.
	EdgeFanIn
)

// Predicate gates an EdgeDirect edge. A nil predicate always passes.
type Predicate func(msg any) bool

// Partition selects the subset of an EdgeFanOut edge's candidate targets
// that should receive msg. The returned slice must be a subset of
// candidates (order as returned is delivery order).
type Partition func(msg any, candidates []string) []string

// Edge is one directed connection in a built Workflow (spec §4.2).
// SourceID and, for Direct/FanOut, TargetIDs are fixed at build time;
// FanIn edges instead declare the full set of sources that must each
// contribute once per round.
type Edge struct {
	Kind EdgeKind

	SourceID string

	// TargetIDs is used by EdgeDirect (len 1) and as the candidate list
	// for EdgeFanOut.
	TargetIDs []string

	// Predicate applies to EdgeDirect only.
	Predicate Predicate

	// Partition applies to EdgeFanOut only.
	Partition Partition

	// FanInSources and FanInTarget apply to EdgeFanIn only. SourceID is
	// unused for fan-in edges since they aggregate multiple sources.
	FanInSources []string
	FanInTarget  string
}

// DirectEdge builds an unconditional or predicate-gated single-target
// edge.
func DirectEdge(source, target string, pred Predicate) Edge {
	return Edge{Kind: EdgeDirect, SourceID: source, TargetIDs: []string{target}, Predicate: pred}
}

// FanOutEdge builds a partition-selected multi-target edge.
func FanOutEdge(source string, candidates []string, part Partition) Edge {
	return Edge{Kind: EdgeFanOut, SourceID: source, TargetIDs: append([]string(nil), candidates...), Partition: part}
}

// FanInEdge builds an aggregating edge: target receives a single
// Composite once every listed source has delivered exactly once in the
// current round (spec §4.2).
func FanInEdge(sources []string, target string) Edge {
	return Edge{Kind: EdgeFanIn, FanInSources: append([]string(nil), sources...), FanInTarget: target}
}

// fanInBuffer is the live per-round bookkeeping for one EdgeFanIn edge,
// keyed by the edge's position in the Workflow's edge list. A source that
// delivers a second time before the round completes is held in pending:
// it does not contribute to the composite in flight, and only becomes
// that source's arrival for the next round once the current round's
// unseen set has been refilled (spec §4.2 edge case: "a source fires
// twice before the others fire once").
type fanInBuffer struct {
	mu       sync.Mutex
	sources  []string
	bySource map[string]any
	arrived  map[string]bool
	pending  map[string][]any
}

func newFanInBuffer(sources []string) *fanInBuffer {
	return &fanInBuffer{
		sources:  sources,
		bySource: make(map[string]any),
		arrived:  make(map[string]bool),
		pending:  make(map[string][]any),
	}
}

// deliver records msg from source and reports whether the round is now
// complete, returning the ordered Composite to release when it is. A
// source that has already arrived this round has msg queued in pending
// instead of overwriting its current value.
func (b *fanInBuffer) deliver(source string, msg any) (Composite, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.arrived[source] {
		b.pending[source] = append(b.pending[source], msg)
	} else {
		b.bySource[source] = msg
		b.arrived[source] = true
	}
	for _, s := range b.sources {
		if !b.arrived[s] {
			return Composite{}, false
		}
	}
	out := Composite{SourceIDs: append([]string(nil), b.sources...), Messages: make([]any, len(b.sources))}
	for i, s := range b.sources {
		out.Messages[i] = b.bySource[s]
	}
	b.bySource = make(map[string]any)
	b.arrived = make(map[string]bool)
	// Refill unseen for the next round; a source with a queued message
	// re-arrives immediately using the oldest one it buffered.
	for _, s := range b.sources {
		if len(b.pending[s]) == 0 {
			continue
		}
		b.bySource[s] = b.pending[s][0]
		b.arrived[s] = true
		b.pending[s] = b.pending[s][1:]
		if len(b.pending[s]) == 0 {
			delete(b.pending, s)
		}
	}
	return out, true
}

// snapshot returns the buffer's current partial state for checkpointing:
// per source, the arrived value (if any) followed by its queued pending
// messages, oldest first.
func (b *fanInBuffer) snapshot() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]any, len(b.sources))
	for _, s := range b.sources {
		queue := make([]any, 0, 1+len(b.pending[s]))
		if b.arrived[s] {
			queue = append(queue, b.bySource[s])
		}
		queue = append(queue, b.pending[s]...)
		if len(queue) > 0 {
			out[s] = queue
		}
	}
	return out
}

// restore replaces the buffer's partial state wholesale from the
// per-source queues snapshot produced.
func (b *fanInBuffer) restore(state map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bySource = make(map[string]any, len(state))
	b.arrived = make(map[string]bool, len(state))
	b.pending = make(map[string][]any, len(state))
	for k, v := range state {
		queue, ok := v.([]any)
		if !ok || len(queue) == 0 {
			continue
		}
		b.bySource[k] = queue[0]
		b.arrived[k] = true
		if len(queue) > 1 {
			b.pending[k] = append([]any(nil), queue[1:]...)
		}
	}
}
