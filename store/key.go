package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/davazp/iredb/serial"
)

// Key addresses a stored entry: "<sha256 hex>-<type tag>". Indirection records
// live under "out:<input key>".
//
// Keys are opaque. The only thing read back out of a key is its trailing tag.
type Key string

const (
	keySeparator      = "-"
	IndirectionPrefix = "out:"
)

// KeyOf derives the key for raw serialized under tag. It depends on nothing
// else, so equal content always lands on the same key.
func KeyOf(raw []byte, tag serial.TypeTag) Key {
	sum := sha256.Sum256(raw)
	return Key(hex.EncodeToString(sum[:]) + keySeparator + string(tag))
}

// IndirectionOf returns the key of the indirection record for input.
func IndirectionOf(input Key) Key {
	return Key(IndirectionPrefix) + input
}

func (k Key) String() string { return string(k) }

// Tag returns the type tag after the last separator.
func (k Key) Tag() (serial.TypeTag, error) {
	i := strings.LastIndex(string(k), keySeparator)
	if i < 0 || i == len(k)-1 {
		return "", fmt.Errorf("%w: %q has no type tag", ErrMalformedKey, string(k))
	}
	return serial.TypeTag(k[i+1:]), nil
}

// IsIndirection reports whether k names an indirection record.
func (k Key) IsIndirection() bool {
	return strings.HasPrefix(string(k), IndirectionPrefix)
}

// validate rejects keys that cannot name a single entry in a flat namespace.
func (k Key) validate() error {
	switch {
	case k == "", k == ".", k == "..":
		return fmt.Errorf("%w: %q", ErrMalformedKey, string(k))
	case strings.ContainsAny(string(k), `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrMalformedKey, string(k))
	}
	return nil
}
