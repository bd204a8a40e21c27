// Package codec serializes the dynamically-typed values a workflow
// moves around (messages, scope values, request/response payloads) into
// a form a CheckpointManager can persist, and back again.
//
// A plain encoding/json round-trip loses concrete Go types: unmarshaling
// into an `any` yields map[string]interface{}, not the original struct.
// Codec fixes this with a small type registry keyed by the same TypeID a
// workflow already threads through its Envelopes, so a checkpoint
// restored in a fresh process reconstructs the exact types its executors
// expect.
package codec

import "errors"

// ErrUnknownType is returned by Decode when no factory is registered for
// the given type id.
var ErrUnknownType = errors.New("codec: no factory registered for type")

// TypeID mirrors workflow.TypeID without importing the workflow package,
// keeping codec usable standalone. No package of this module imports
// codec.
type TypeID string

// Codec encodes and decodes opaque values addressed by TypeID.
type Codec interface {
	// Encode serializes v to bytes.
	Encode(v any) ([]byte, error)

	// Decode deserializes data into a freshly constructed value of the
	// type registered under id.
	Decode(id TypeID, data []byte) (any, error)
}

// Registry is a Codec's type-id -> zero-value-factory table. Implementations
// embed one rather than re-deriving factory lookup.
type Registry struct {
	factories map[TypeID]func() any
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[TypeID]func() any)}
}

// Register associates id with a constructor for its Go type. Call once
// per message/state type a workflow's checkpoints may need to
// reconstruct.
func Register[T any](r *Registry, id TypeID) {
	r.factories[id] = func() any {
		var zero T
		return &zero
	}
}

func (r *Registry) factory(id TypeID) (func() any, bool) {
	f, ok := r.factories[id]
	return f, ok
}
