package store

import (
	"context"
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
)

const (
	entriesTable = "entries"
	idIndex      = "id"
)

var _ Backend = memDBBackend{}

// memEntry is a value entry when Target is empty, an indirection record otherwise.
type memEntry struct {
	Key    string
	Raw    []byte
	Target string
}

func entriesSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			entriesTable: {
				Name: entriesTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
}

// memDBBackend keeps entries in an in-process go-memdb table. Write
// transactions are serialized by memdb, which makes first-then-insert atomic.
type memDBBackend struct {
	db *memdb.MemDB
}

// NewMemDBBackend returns an empty in-memory Backend.
func NewMemDBBackend() (Backend, error) {
	db, err := memdb.NewMemDB(entriesSchema())
	if err != nil {
		return nil, err
	}
	return memDBBackend{db: db}, nil
}

func (m memDBBackend) first(txn *memdb.Txn, key Key) (*memEntry, error) {
	raw, err := txn.First(entriesTable, idIndex, string(key))
	if err != nil || raw == nil {
		return nil, err
	}
	return raw.(*memEntry), nil
}

func (m memDBBackend) Load(_ context.Context, key Key) ([]byte, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	e, err := m.first(txn, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreReadFailed, key, err)
	}
	// an indirection record reads as the entry it points to
	if e != nil && e.Target != "" {
		e, err = m.first(txn, Key(e.Target))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrStoreReadFailed, key, err)
		}
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), e.Raw...), nil
}

func (m memDBBackend) InsertIfAbsent(_ context.Context, key Key, raw []byte) (bool, error) {
	return m.insertIfAbsent(&memEntry{Key: string(key), Raw: append([]byte(nil), raw...)})
}

func (m memDBBackend) LoadLink(_ context.Context, key Key) (Key, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	e, err := m.first(txn, key)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrStoreReadFailed, key, err)
	}
	if e == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if e.Target == "" {
		return "", fmt.Errorf("%w: %s is not an indirection record", ErrStoreReadFailed, key)
	}
	return Key(e.Target), nil
}

func (m memDBBackend) LinkIfAbsent(_ context.Context, key, target Key) (bool, error) {
	return m.insertIfAbsent(&memEntry{Key: string(key), Target: string(target)})
}

func (m memDBBackend) insertIfAbsent(e *memEntry) (bool, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	old, err := m.first(txn, Key(e.Key))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrStoreWriteFailed, e.Key, err)
	} else if old != nil {
		return false, nil
	}

	if err := txn.Insert(entriesTable, e); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrStoreWriteFailed, e.Key, err)
	}
	txn.Commit()
	return true, nil
}
