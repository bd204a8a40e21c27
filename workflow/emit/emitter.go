package emit

import "context"

// Emitter receives observability events from a run. Implementations must
// not block the scheduler and must not panic; a failing backend should
// log and drop rather than propagate.
type Emitter interface {
	// Emit sends a single event to the configured backend.
	Emit(event Event)

	// EmitBatch sends several events at once, preserving order.
	// Implementations that have no batching advantage may simply loop
	// over Emit.
	EmitBatch(ctx context.Context, events []Event) error
}
