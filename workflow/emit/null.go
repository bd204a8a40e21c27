package emit

import "context"

// NullEmitter discards every event. It is the default when no Emitter is
// configured, so runs incur no observability overhead unless asked for.
type NullEmitter struct{}

func (NullEmitter) Emit(Event) {}

func (NullEmitter) EmitBatch(context.Context, []Event) error { return nil }
