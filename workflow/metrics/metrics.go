// Package metrics provides Prometheus-compatible instrumentation for
// workflow execution.
package metrics

import "time"

// Collector is the instrumentation surface a Runner drives. Implementations
// must be safe for concurrent use, since different recipients within a
// superstep execute concurrently.
type Collector interface {
	// SetInflightExecutors reports the number of executor invocations
	// currently running within the active superstep.
	SetInflightExecutors(runID string, n int)

	// SetQueueDepth reports the number of envelopes queued for the next
	// superstep.
	SetQueueDepth(runID string, n int)

	// RecordExecutorLatency records one handler invocation's duration.
	// status is "success" or "error".
	RecordExecutorLatency(runID, executorID string, latency time.Duration, status string)

	// IncSuperSteps counts one completed superstep.
	IncSuperSteps(runID string)

	// IncCheckpoints counts one committed checkpoint.
	IncCheckpoints(runID string)

	// SetOutstandingRequests reports the number of unserviced external
	// requests across all ports.
	SetOutstandingRequests(runID string, n int)

	// IncFaults counts one executor fault, labeled by its FaultKind.
	IncFaults(runID, kind string)
}
