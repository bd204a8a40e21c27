package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Workflow is an immutable, built graph of executors, edges and ports
// (spec §3: "Workflow"). Construct one with Builder.Build; a Workflow is
// safe for concurrent use across many runs.
type Workflow struct {
	executors map[string]Executor
	order     []string // registration order

	startID string

	edges []Edge
	// directBySource indexes edges of kind EdgeDirect/EdgeFanOut by their
	// SourceID, preserving AddEdge registration order within a source.
	directBySource map[string][]int
	// fanInBySource maps a source id to the indices of edges (into edges)
	// it participates in as a fan-in source. The live per-round buffers
	// for these edges are NOT stored here: Workflow is immutable and
	// shared across concurrent runs, so buffer state lives in each run's
	// RunnerContext instead, keyed by the same edge index.
	fanInBySource map[string][]int

	ports map[string]PortDescriptor
	// portOwners maps a port id to the id of the RequestInputExecutor
	// that owns it, so the scheduler knows which executor's inbox a
	// matched ExternalResponse is delivered to.
	portOwners map[string]string

	fingerprint string
}

// portOwner is implemented by executors that back a request/response
// port (currently only *RequestInputExecutor), letting Builder.Build
// auto-register their PortDescriptor without a separate AddPort call.
type portOwner interface {
	Port() PortDescriptor
}

// StartID returns the id of the designated start executor.
func (w *Workflow) StartID() string { return w.startID }

// Fingerprint returns a stable hash of the workflow's structure: executor
// ids, edge shapes, and port contracts. Two Workflow values built from
// equivalent definitions produce the same fingerprint regardless of
// process; a checkpoint may only be restored against a workflow sharing
// its origin fingerprint (spec §4.5, §7: ErrCheckpointIncompatible).
func (w *Workflow) Fingerprint() string { return w.fingerprint }

// Executor looks up a built executor by id.
func (w *Workflow) Executor(id string) (Executor, bool) {
	e, ok := w.executors[id]
	return e, ok
}

// Port looks up a registered port descriptor by id.
func (w *Workflow) Port(id string) (PortDescriptor, bool) {
	p, ok := w.ports[id]
	return p, ok
}

// portOwnerID returns the executor id backing portID.
func (w *Workflow) portOwnerID(portID string) (string, bool) {
	id, ok := w.portOwners[portID]
	return id, ok
}

// outgoing returns the Direct/FanOut edges registered for source, in
// registration order.
func (w *Workflow) outgoing(source string) []Edge {
	idxs := w.directBySource[source]
	out := make([]Edge, len(idxs))
	for i, idx := range idxs {
		out[i] = w.edges[idx]
	}
	return out
}

// fanInEdgesFor returns the indices (into edgeAt) of the EdgeFanIn edges
// that source participates in.
func (w *Workflow) fanInEdgesFor(source string) []int {
	return w.fanInBySource[source]
}

// edgeAt returns the edge registered at idx.
func (w *Workflow) edgeAt(idx int) Edge {
	return w.edges[idx]
}

// executorIDs returns every executor id in registration order.
func (w *Workflow) executorIDs() []string {
	return w.order
}

func computeFingerprint(w *Workflow) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "S:%s\n", w.startID)

	execIDs := append([]string(nil), w.order...)
	sort.Strings(execIDs)
	for _, id := range execIDs {
		fmt.Fprintf(&sb, "E:%s\n", id)
	}

	type edgeLine struct {
		kind EdgeKind
		text string
	}
	lines := make([]edgeLine, 0, len(w.edges))
	for _, e := range w.edges {
		switch e.Kind {
		case EdgeDirect:
			lines = append(lines, edgeLine{e.Kind, fmt.Sprintf("D:%s->%s", e.SourceID, strings.Join(e.TargetIDs, ","))})
		case EdgeFanOut:
			lines = append(lines, edgeLine{e.Kind, fmt.Sprintf("F:%s->%s", e.SourceID, strings.Join(e.TargetIDs, ","))})
		case EdgeFanIn:
			srcs := append([]string(nil), e.FanInSources...)
			sort.Strings(srcs)
			lines = append(lines, edgeLine{e.Kind, fmt.Sprintf("J:%s->%s", strings.Join(srcs, ","), e.FanInTarget)})
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].text < lines[j].text })
	for _, l := range lines {
		fmt.Fprintf(&sb, "%s\n", l.text)
	}

	portIDs := make([]string, 0, len(w.ports))
	for id := range w.ports {
		portIDs = append(portIDs, id)
	}
	sort.Strings(portIDs)
	for _, id := range portIDs {
		p := w.ports[id]
		fmt.Fprintf(&sb, "P:%s:%s:%s\n", p.PortID, p.RequestType, p.ResponseType)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
