package workflow

import "reflect"

// TypeID is a stable, human-readable identifier for a message's declared
// type. It is preserved across checkpoint round-trips so that routing
// decisions survive serialization through opaque containers (spec §3:
// "Message envelope").
//
// workflow/codec keys its type registry by a string TypeID of the same
// form. Checkpoint restore does not go through that codec: the
// workflow/store backends encode checkpoints with plain encoding/json.
type TypeID string

// typeIDOf derives the declared TypeID for a runtime value using its
// dynamic type. A nil value has no declared type.
func typeIDOf(v any) TypeID {
	if v == nil {
		return ""
	}
	return TypeID(reflect.TypeOf(v).String())
}

// typeID returns the TypeID for a static type parameter, independent of
// any particular value. This lets handler registration (executor.Handle)
// declare the type it accepts without constructing a zero value first.
func typeID[T any]() TypeID {
	return TypeID(reflect.TypeOf((*T)(nil)).Elem().String())
}

// reflectTypeOf returns the reflect.Type backing a static type parameter,
// used for the assignable-from fallback in handler resolution (spec §4.1).
func reflectTypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// assignableFrom reports whether a value of dynamic type vt may be routed
// to a handler declared for static type want, under Go's assignability
// rules (most commonly: vt implements an interface type that want names,
// or vt equals want).
func assignableFrom(vt reflect.Type, want reflect.Type) bool {
	if vt == nil || want == nil {
		return false
	}
	return vt.AssignableTo(want)
}
