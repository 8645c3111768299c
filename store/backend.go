package store

import "context"

// Backend is a flat namespace of write-once entries.
//
// InsertIfAbsent and LinkIfAbsent must be atomic create-if-absent operations:
// when two callers race on one key exactly one of them inserts, and the other
// observes inserted == false with a nil error. Nothing is ever overwritten.
//
// Load and LoadLink return ErrNotFound when the key does not exist. Other
// failures are wrapped with ErrStoreReadFailed or ErrStoreWriteFailed.
type Backend interface {
	Load(ctx context.Context, key Key) ([]byte, error)
	InsertIfAbsent(ctx context.Context, key Key, raw []byte) (inserted bool, err error)

	// LoadLink returns the target of the indirection record at key.
	LoadLink(ctx context.Context, key Key) (Key, error)
	LinkIfAbsent(ctx context.Context, key, target Key) (inserted bool, err error)
}
