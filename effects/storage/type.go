package storage

import (
	"github.com/davazp/iredb/effects"
	"github.com/davazp/iredb/serial"
	"github.com/davazp/iredb/store"
)

// Payload is a sealed interface for storage operations.
// Only the payload types of this package implement it.
type Payload interface {
	PartitionKey() string
	payload()
}

var (
	_ Payload = Source{}
	_ Payload = Put{}
	_ Payload = Get{}
	_ Payload = FetchValue{}
	_ Payload = Link{}
	_ Payload = Resolve{}
)

// Source asks for the event sink of the handler.
type Source struct{}

func (Source) PartitionKey() string { return "" }
func (Source) payload()             {}

// Put stores Raw under its content key.
type Put struct {
	Raw []byte
	Tag serial.TypeTag

	key store.Key
}

// NewPut computes the key once so routing and storing agree on it.
func NewPut(raw []byte, tag serial.TypeTag) Put {
	return Put{Raw: raw, Tag: tag, key: store.KeyOf(raw, tag)}
}

// PartitionKey is the content key. A Put built without NewPut hashes on
// every call.
func (p Put) PartitionKey() string {
	if p.key == "" {
		return string(store.KeyOf(p.Raw, p.Tag))
	}
	return string(p.key)
}

func (p Put) payload() {}

type Get struct {
	Key store.Key
}

func (p Get) PartitionKey() string { return string(p.Key) }
func (p Get) payload()             {}

type FetchValue struct {
	Key store.Key
}

func (p FetchValue) PartitionKey() string { return string(p.Key) }
func (p FetchValue) payload()             {}

// Link records From -> To unless From already has a record.
type Link struct {
	From store.Key
	To   store.Key
}

func (p Link) PartitionKey() string { return string(p.From) }
func (p Link) payload()             {}

type Resolve struct {
	From store.Key
}

func (p Resolve) PartitionKey() string { return string(p.From) }
func (p Resolve) payload()             {}

// PutResult is the answer to Put.
type PutResult struct {
	Key      store.Key
	Inserted bool
}

// LinkResult is the answer to Link. Recorded differs from the requested
// target when another writer linked first.
type LinkResult struct {
	Recorded store.Key
	Inserted bool
}

type Op string

const (
	OpPut  Op = "put"
	OpLink Op = "link"
)

// Event describes one successful write. Target is set for links only.
type Event struct {
	Op       Op
	Key      store.Key
	Target   store.Key
	Inserted bool
	effects.TimeSpan
}
