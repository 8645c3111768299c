package store

import (
	"errors"
	"fmt"

	"github.com/davazp/iredb/serial"
)

// Sentinel errors for store operations.
var (
	ErrNotFound         = errors.New("not found")
	ErrStoreReadFailed  = errors.New("store read failed")
	ErrStoreWriteFailed = errors.New("store write failed")
	ErrMalformedKey     = errors.New("malformed key")
	ErrUnsupportedType  = serial.ErrUnsupportedType
)

func readFailed(key Key, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreReadFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreReadFailed, key, err)
}

func writeFailed(key Key, err error) error {
	if errors.Is(err, ErrStoreWriteFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreWriteFailed, key, err)
}
