package codec_test

import (
	"testing"

	"github.com/flowmesh/workflow/codec"
)

type guess struct {
	Value int
	Note  string
}

func TestJSONCodecRoundTrip(t *testing.T) {
	t.Run("a registered type decodes back to its concrete Go type, not a map", func(t *testing.T) {
		reg := codec.NewRegistry()
		codec.Register[guess](reg, "guess")
		c := codec.NewJSONCodec(reg)

		data, err := c.Encode(guess{Value: 7, Note: "seven"})
		if err != nil {
			t.Fatalf("unexpected encode error: %v", err)
		}

		decoded, err := c.Decode("guess", data)
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}

		g, ok := decoded.(guess)
		if !ok {
			t.Fatalf("expected decoded value to be a guess, got %T", decoded)
		}
		if g.Value != 7 || g.Note != "seven" {
			t.Fatalf("unexpected decoded value: %+v", g)
		}
	})

	t.Run("decoding an unregistered type id fails with ErrUnknownType", func(t *testing.T) {
		reg := codec.NewRegistry()
		c := codec.NewJSONCodec(reg)

		_, err := c.Decode("nope", []byte(`{}`))
		if err != codec.ErrUnknownType {
			t.Fatalf("expected ErrUnknownType, got %v", err)
		}
	})

	t.Run("Encode does not require the type to be registered", func(t *testing.T) {
		reg := codec.NewRegistry()
		c := codec.NewJSONCodec(reg)

		if _, err := c.Encode(guess{Value: 1}); err != nil {
			t.Fatalf("unexpected error encoding an unregistered type: %v", err)
		}
	})
}
