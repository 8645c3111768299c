package handlers

import (
	"context"

	effectmodel "github.com/davazp/iredb/effects/internal/model"
)

// NewFireAndForgetHandler starts the workers running handleFn. Payloads still
// queued when the scope closes are handled during Close rather than dropped.
func NewFireAndForgetHandler[P any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, P),
	teardown func(),
) FireAndForgetHandler[P] {
	config = config.Normalized()
	scope := newEffectScope(ctx, teardown)

	var keyOf func(P) string
	if config.NumWorkers > 1 {
		keyOf = func(p P) string {
			if pp, ok := any(p).(effectmodel.Partitionable); ok {
				return pp.PartitionKey()
			}
			return ""
		}
	}

	d := newDispatcher(scope.ctx, config.NumWorkers, config.BufferSize, keyOf, handleFn)
	scope.stop = func() {
		flushCtx := context.WithoutCancel(scope.ctx)
		d.drain(func(p P) { handleFn(flushCtx, p) })
	}

	return FireAndForgetHandler[P]{effectScope: scope, dispatcher: d}
}

type FireAndForgetHandler[P any] struct {
	*effectScope
	dispatcher *dispatcher[P]
}

// FireAndForgetEffect queues payload. It returns false when payload was not
// queued because ctx ended or the scope is closed.
func (ffh FireAndForgetHandler[P]) FireAndForgetEffect(ctx context.Context, payload P) bool {
	if ctx.Err() != nil || !ffh.enter() {
		return false
	}
	defer ffh.leave()

	select {
	case ffh.dispatcher.channelOf(payload) <- payload:
		return true
	case <-ctx.Done():
	case <-ffh.Done():
	}
	return false
}
