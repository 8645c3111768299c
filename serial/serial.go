// Package serial turns values into the bytes the store hashes, and back.
//
// Binary payloads pass through untouched. Structured values are encoded as
// canonical JSON: one byte sequence per logical value, whatever the mapping
// key order was, which is what makes content addressing deduplicate.
package serial

import (
	"errors"
	"fmt"

	"github.com/davazp/iredb/value"
)

// TypeTag names the serialization used for a stored entry.
type TypeTag string

const (
	TagBinary TypeTag = "binary"
	TagJSON   TypeTag = "json"
)

var (
	ErrUnsupportedType = errors.New("unsupported type")
	ErrInvalidJSON     = errors.New("invalid json")
)

// Serialize returns the bytes for v and the tag they were produced under.
// Binary bytes are returned as is; callers must treat them as immutable.
// Structured values must pass value.Validate.
func Serialize(v value.Value) ([]byte, TypeTag) {
	switch v := v.(type) {
	case value.Binary:
		return v, TagBinary
	case value.Structured:
		return Canonical(v.JSON), TagJSON
	}
	panic(fmt.Sprintf("exhaustive match fallback, value type: %T", v))
}

// Deserialize is the inverse of Serialize.
func Deserialize(raw []byte, tag TypeTag) (value.Value, error) {
	switch tag {
	case TagBinary:
		return value.Binary(raw), nil
	case TagJSON:
		j, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		return value.Structured{JSON: j}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, tag)
	}
}
