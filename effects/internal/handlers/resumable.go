package handlers

import (
	"context"

	effectmodel "github.com/davazp/iredb/effects/internal/model"
)

// NewResumableHandler starts config.NumWorkers workers running handleFn.
// Payloads implementing Partitionable are routed by their PartitionKey, so
// effects on one key are handled in the order they were performed.
func NewResumableHandler[P any, R any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, P) (R, error),
	teardown func(),
) ResumableHandler[P, R] {
	config = config.Normalized()
	scope := newEffectScope(ctx, teardown)

	var keyOf func(resumableMessage[P, R]) string
	if config.NumWorkers > 1 {
		keyOf = resumableMessage[P, R].partitionKey
	}

	d := newDispatcher(
		scope.ctx,
		config.NumWorkers,
		config.BufferSize,
		keyOf,
		func(ctx context.Context, msg resumableMessage[P, R]) {
			msg.resume(handleFn(ctx, msg.payload))
		},
	)
	scope.stop = func() {
		d.drain(func(msg resumableMessage[P, R]) {
			var zero R
			msg.resume(zero, effectmodel.ErrScopeClosed)
		})
	}

	return ResumableHandler[P, R]{effectScope: scope, dispatcher: d}
}

type ResumableHandler[P any, R any] struct {
	*effectScope
	dispatcher *dispatcher[resumableMessage[P, R]]
}

// PerformEffect queues payload and returns a channel that receives exactly one
// result and is then closed.
func (rh ResumableHandler[P, R]) PerformEffect(ctx context.Context, payload P) <-chan effectmodel.ResumableResult[R] {
	resumeCh := make(chan effectmodel.ResumableResult[R], 1)
	msg := resumableMessage[P, R]{payload: payload, resumeCh: resumeCh}

	var zero R
	if err := ctx.Err(); err != nil {
		msg.resume(zero, err)
		return resumeCh
	}
	if !rh.enter() {
		msg.resume(zero, effectmodel.ErrScopeClosed)
		return resumeCh
	}
	defer rh.leave()

	select {
	case rh.dispatcher.channelOf(msg) <- msg:
	case <-ctx.Done():
		msg.resume(zero, ctx.Err())
	case <-rh.Done():
		msg.resume(zero, effectmodel.ErrScopeClosed)
	}
	return resumeCh
}

type resumableMessage[P any, R any] struct {
	payload  P
	resumeCh chan effectmodel.ResumableResult[R]
}

func (m resumableMessage[P, R]) partitionKey() string {
	if p, ok := any(m.payload).(effectmodel.Partitionable); ok {
		return p.PartitionKey()
	}
	return ""
}

// resume never blocks: resumeCh has room for the single result.
func (m resumableMessage[P, R]) resume(res R, err error) {
	m.resumeCh <- effectmodel.ResumableResultFrom(res, err)
	close(m.resumeCh)
}
