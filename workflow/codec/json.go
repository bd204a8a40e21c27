package codec

import (
	"encoding/json"
	"reflect"
)

// JSONCodec is the default Codec: values are marshaled with
// encoding/json, and decoded into the concrete Go type Register'd for
// their TypeID.
type JSONCodec struct {
	registry *Registry
}

// NewJSONCodec builds a JSONCodec backed by registry. Pass a fresh
// NewRegistry() and Register every message/state type the workflow's
// executors and scope entries may hold.
func NewJSONCodec(registry *Registry) *JSONCodec {
	return &JSONCodec{registry: registry}
}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(id TypeID, data []byte) (any, error) {
	factory, ok := c.registry.factory(id)
	if !ok {
		return nil, ErrUnknownType
	}
	target := factory()
	if err := json.Unmarshal(data, target); err != nil {
		return nil, err
	}
	return derefPointer(target), nil
}

// derefPointer unwraps the single level of pointer indirection
// Register's factory introduces, so Decode returns T rather than *T for
// a T registered via Register[T].
func derefPointer(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return rv.Elem().Interface()
	}
	return v
}
