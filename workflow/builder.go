package workflow

import "fmt"

// Builder assembles executors, edges and ports into an immutable
// Workflow (spec §3, §4.2). Zero value is not usable; start with
// NewBuilder.
type Builder struct {
	executors map[string]Executor
	order     []string
	startID   string
	edges     []Edge
	ports     map[string]PortDescriptor
	err       error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		executors: make(map[string]Executor),
		ports:     make(map[string]PortDescriptor),
	}
}

// AddExecutor registers e under its own ID. Calling AddExecutor twice
// with the same ID records ErrDuplicateExecutor, surfaced by Build.
func (b *Builder) AddExecutor(e Executor) *Builder {
	if b.err != nil {
		return b
	}
	id := e.ID()
	if _, exists := b.executors[id]; exists {
		b.err = fmt.Errorf("%w: %q", ErrDuplicateExecutor, id)
		return b
	}
	b.executors[id] = e
	b.order = append(b.order, id)
	return b
}

// AddPort registers a port descriptor so RunHandle.Respond can validate
// responses against it. Build already registers the port of every added
// executor that owns one (such as a RequestInputExecutor), so AddPort is
// not needed for those.
func (b *Builder) AddPort(p PortDescriptor) *Builder {
	if b.err != nil {
		return b
	}
	b.ports[p.PortID] = p
	return b
}

// SetStart designates the executor that receives a run's initial
// enqueued input (spec §4.1: "Run... enqueues a typed or raw value,
// delivered to the graph's designated start executor").
func (b *Builder) SetStart(id string) *Builder {
	if b.err != nil {
		return b
	}
	b.startID = id
	return b
}

// AddEdge registers a Direct, FanOut or FanIn edge.
func (b *Builder) AddEdge(e Edge) *Builder {
	if b.err != nil {
		return b
	}
	b.edges = append(b.edges, e)
	return b
}

// Build validates the accumulated definition and returns an immutable
// Workflow, or the first structural error encountered (ErrNoStartExecutor,
// ErrExecutorNotFound, ErrDuplicateExecutor).
func (b *Builder) Build() (*Workflow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.startID == "" {
		return nil, ErrNoStartExecutor
	}
	if _, ok := b.executors[b.startID]; !ok {
		return nil, fmt.Errorf("%w: start executor %q", ErrExecutorNotFound, b.startID)
	}

	w := &Workflow{
		executors:      make(map[string]Executor, len(b.executors)),
		order:          append([]string(nil), b.order...),
		startID:        b.startID,
		edges:          append([]Edge(nil), b.edges...),
		directBySource: make(map[string][]int),
		fanInBySource:  make(map[string][]int),
		ports:          make(map[string]PortDescriptor, len(b.ports)),
		portOwners:     make(map[string]string),
	}
	for id, e := range b.executors {
		w.executors[id] = e
	}
	for id, p := range b.ports {
		w.ports[id] = p
	}
	for id, e := range b.executors {
		if po, ok := e.(portOwner); ok {
			p := po.Port()
			w.ports[p.PortID] = p
			w.portOwners[p.PortID] = id
		}
	}

	for idx, e := range w.edges {
		switch e.Kind {
		case EdgeDirect, EdgeFanOut:
			if _, ok := w.executors[e.SourceID]; !ok {
				return nil, fmt.Errorf("%w: edge source %q", ErrExecutorNotFound, e.SourceID)
			}
			for _, t := range e.TargetIDs {
				if _, ok := w.executors[t]; !ok {
					return nil, fmt.Errorf("%w: edge target %q", ErrExecutorNotFound, t)
				}
			}
			w.directBySource[e.SourceID] = append(w.directBySource[e.SourceID], idx)
		case EdgeFanIn:
			if _, ok := w.executors[e.FanInTarget]; !ok {
				return nil, fmt.Errorf("%w: fan-in target %q", ErrExecutorNotFound, e.FanInTarget)
			}
			for _, s := range e.FanInSources {
				if _, ok := w.executors[s]; !ok {
					return nil, fmt.Errorf("%w: fan-in source %q", ErrExecutorNotFound, s)
				}
				w.fanInBySource[s] = append(w.fanInBySource[s], idx)
			}
		}
	}

	w.fingerprint = computeFingerprint(w)
	return w, nil
}
