// Package value defines what the store accepts: raw binary blobs and
// structured, JSON-like trees.
//
// Both Value and JSON are sealed sum types. Callers switch over the variants
// (or use Match) instead of inspecting untyped interfaces.
package value

import (
	"bytes"
	"fmt"
)

// Value is either Binary or Structured.
type Value interface {
	sealedValue()
}

// Binary is an opaque byte payload. It is stored unchanged.
type Binary []byte

func (Binary) sealedValue() {}

// Structured wraps a JSON-like tree.
type Structured struct {
	JSON JSON
}

func (Structured) sealedValue() {}

// NewStructured wraps j; a nil j is treated as Null.
func NewStructured(j JSON) Structured {
	if j == nil {
		j = Null{}
	}
	return Structured{JSON: j}
}

// JSON is one of Null, Bool, Number, String, Sequence or Mapping.
type JSON interface {
	sealedJSON()
}

type Null struct{}

type Bool bool

// Number follows JSON/ECMAScript semantics: every number is a float64.
type Number float64

type String string

type Sequence []JSON

type Mapping map[string]JSON

func (Null) sealedJSON()     {}
func (Bool) sealedJSON()     {}
func (Number) sealedJSON()   {}
func (String) sealedJSON()   {}
func (Sequence) sealedJSON() {}
func (Mapping) sealedJSON()  {}

// Match dispatches on the variant of v.
func Match[T any](
	v Value,
	onBinary func(Binary) T,
	onStructured func(Structured) T,
) T {
	switch v := v.(type) {
	case Binary:
		return onBinary(v)
	case Structured:
		return onStructured(v)
	}
	panic(fmt.Sprintf("exhaustive match fallback, value type: %T", v))
}

// Equal reports whether a and b are the same variant with the same content.
// Mapping key order never matters.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Binary:
		b, ok := b.(Binary)
		return ok && bytes.Equal(a, b)
	case Structured:
		b, ok := b.(Structured)
		return ok && EqualJSON(a.JSON, b.JSON)
	}
	return false
}

// EqualJSON compares two trees structurally. A nil JSON equals Null.
func EqualJSON(a, b JSON) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	switch a := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Number:
		b, ok := b.(Number)
		return ok && a == b
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Sequence:
		b, ok := b.(Sequence)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !EqualJSON(a[i], b[i]) {
				return false
			}
		}
		return true
	case Mapping:
		b, ok := b.(Mapping)
		if !ok || len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !EqualJSON(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}
