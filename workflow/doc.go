// Package workflow implements a deterministic, checkpointable, graph-based
// dataflow runtime. User-defined executors exchange typed messages across
// static edges (direct, fan-out, fan-in) under a bounded-concurrency
// "superstep" scheduler: every message emitted during step N is delivered
// to its recipients at the start of step N+1, never within step N itself.
//
// The runtime is agnostic to what an executor does internally — an
// executor is simply a named unit of code with a routing table from
// message type to handler. Building a workflow, driving its run handle,
// and observing its event stream are the three surfaces a host needs.
package workflow
