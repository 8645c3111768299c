// Package storage performs content-addressed store operations as effects.
//
// The handler routes every payload by the key it touches, so with several
// workers operations on one key still run in the order they were performed
// while operations on other keys proceed in parallel.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davazp/iredb/effects"
	effectmodel "github.com/davazp/iredb/effects/internal/model"
	"github.com/davazp/iredb/serial"
	"github.com/davazp/iredb/shared/helper"
	"github.com/davazp/iredb/store"
	"github.com/davazp/iredb/value"
)

// WithEffectHandler registers a resumable, partitionable storage handler over st.
// The end function closes the event sink returned by EffectSource; it does not
// close st.
func WithEffectHandler(
	ctx context.Context,
	config effects.EffectScopeConfig,
	st *store.Store,
) (context.Context, func() context.Context) {
	config = config.Normalized()
	h := &storageHandler{
		store: st,
		sink:  newEventSink(2 * config.BufferSize * config.NumWorkers),
	}
	return effects.WithResumablePartitionableEffectHandler(
		ctx,
		config,
		effectmodel.EffectStorage,
		h.handle,
		h.sink.close,
	)
}

// EffectSource returns the channel on which successful writes are published.
// Events are dropped rather than blocking writers when nobody keeps up.
func EffectSource(ctx context.Context) (<-chan Event, error) {
	return helper.GetTypedValueOf[<-chan Event](func() (any, error) {
		return effect(ctx, Source{})
	})
}

func EffectPut(ctx context.Context, raw []byte, tag serial.TypeTag) (store.Key, error) {
	res, err := EffectInsert(ctx, raw, tag)
	return res.Key, err
}

// EffectInsert is EffectPut, also reporting whether the entry was new.
func EffectInsert(ctx context.Context, raw []byte, tag serial.TypeTag) (PutResult, error) {
	return helper.GetTypedValueOf[PutResult](func() (any, error) {
		return effect(ctx, NewPut(raw, tag))
	})
}

func EffectGet(ctx context.Context, key store.Key) ([]byte, error) {
	return helper.GetTypedValueOf[[]byte](func() (any, error) {
		return effect(ctx, Get{Key: key})
	})
}

func EffectStoreValue(ctx context.Context, v value.Value) (store.Key, error) {
	if err := value.Validate(v); err != nil {
		return "", err
	}
	raw, tag := serial.Serialize(v)
	return EffectPut(ctx, raw, tag)
}

func EffectFetchValue(ctx context.Context, key store.Key) (value.Value, error) {
	return helper.GetTypedValueOf[value.Value](func() (any, error) {
		return effect(ctx, FetchValue{Key: key})
	})
}

func EffectLink(ctx context.Context, from, to store.Key) (LinkResult, error) {
	return helper.GetTypedValueOf[LinkResult](func() (any, error) {
		return effect(ctx, Link{From: from, To: to})
	})
}

func EffectResolve(ctx context.Context, from store.Key) (store.Key, error) {
	return helper.GetTypedValueOf[store.Key](func() (any, error) {
		return effect(ctx, Resolve{From: from})
	})
}

func effect(ctx context.Context, payload Payload) (any, error) {
	return effects.AwaitResumableEffect[Payload, any](ctx, effectmodel.EffectStorage, payload)
}

type storageHandler struct {
	store *store.Store
	sink  *eventSink
}

// handle routes the given payload to the store operation it names.
func (h *storageHandler) handle(ctx context.Context, payload Payload) (any, error) {
	start := time.Now()

	switch payload := payload.(type) {

	case Put:
		key, inserted, err := h.store.Insert(ctx, payload.Raw, payload.Tag)
		if err != nil {
			return nil, err
		}
		h.sink.publish(Event{Op: OpPut, Key: key, Inserted: inserted, TimeSpan: effects.Since(start)})
		return PutResult{Key: key, Inserted: inserted}, nil

	case Get:
		return h.store.Get(ctx, payload.Key)

	case FetchValue:
		return h.store.FetchValue(ctx, payload.Key)

	case Link:
		recorded, inserted, err := h.store.Link(ctx, payload.From, payload.To)
		if err != nil {
			return nil, err
		}
		h.sink.publish(Event{Op: OpLink, Key: payload.From, Target: recorded, Inserted: inserted, TimeSpan: effects.Since(start)})
		return LinkResult{Recorded: recorded, Inserted: inserted}, nil

	case Resolve:
		return h.store.Resolve(ctx, payload.From)

	case Source:
		return h.sink.source(), nil

	default:
		// Payload is sealed, so this is a bug in this package.
		panic(fmt.Errorf("invalid storage operation type: %T", payload))
	}
}

type eventSink struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

func newEventSink(size int) *eventSink {
	return &eventSink{ch: make(chan Event, size)}
}

func (s *eventSink) source() <-chan Event {
	return s.ch
}

func (s *eventSink) publish(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
	}
}

func (s *eventSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
