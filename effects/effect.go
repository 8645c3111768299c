package effects

import (
	"context"

	"github.com/davazp/iredb/effects/internal/handlers"
	"github.com/davazp/iredb/effects/internal/helper"
	effectmodel "github.com/davazp/iredb/effects/internal/model"
	sharedHelper "github.com/davazp/iredb/shared/helper"
	"go.uber.org/zap"
)

type (
	EffectEnum        = effectmodel.EffectEnum
	EffectScopeConfig = effectmodel.EffectScopeConfig
	Partitionable     = effectmodel.Partitionable
)

// ResumableResult is what a resumable effect answers with.
type ResumableResult[T any] = effectmodel.ResumableResult[T]

var (
	ErrNoEffectHandler = effectmodel.ErrNoEffectHandler
	ErrScopeClosed     = effectmodel.ErrScopeClosed
)

// NewEffectScopeConfig returns a config with non-positive values replaced by 1.
func NewEffectScopeConfig(bufferSize, numWorkers int) EffectScopeConfig {
	return effectmodel.NewEffectScopeConfig(bufferSize, numWorkers)
}

// WithResumablePartitionableEffectHandler registers a resumable effect handler for a given effect enum.
//
// With more than one worker, payloads are dispatched by PartitionKey(), which
// keeps per-key ordering for effects like storage writes.
//
// Usage:
//
//	ctx, end := WithResumablePartitionableEffectHandler(ctx, config, MyEffectEnum, handleFn)
//	defer end()
func WithResumablePartitionableEffectHandler[P Partitionable, R any](
	ctx context.Context,
	config EffectScopeConfig,
	enum EffectEnum,
	handleFn func(context.Context, P) (R, error),
	teardown ...func(),
) (context.Context, func() context.Context) {
	handler := handlers.NewResumableHandler(ctx, config, handleFn, normalizeTeardown(teardown))
	return install(ctx, enum, handler.EffectId, "resumable", handler.Close, handler)
}

// PerformResumableEffect sends a payload to the resumable effect handler.
//
// The returned channel receives exactly one result and is then closed.
// Panics if no handler is registered for the given effect enum.
func PerformResumableEffect[P Partitionable, R any](
	ctx context.Context,
	enum EffectEnum,
	payload P,
) <-chan ResumableResult[R] {
	handler := sharedHelper.MustGetTypedValue[handlers.ResumableHandler[P, R]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	return handler.PerformEffect(ctx, payload)
}

// AwaitResumableEffect performs the effect and waits for its result or for ctx to end.
func AwaitResumableEffect[P Partitionable, R any](
	ctx context.Context,
	enum EffectEnum,
	payload P,
) (R, error) {
	resultCh := PerformResumableEffect[P, R](ctx, enum, payload)
	select {
	case res, ok := <-resultCh:
		if ok {
			return res.Value, res.Err
		}
	case <-ctx.Done():
	}
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, ErrScopeClosed
}

// WithFireAndForgetEffectHandler registers a fire-and-forget effect handler for a given effect enum.
//
// Suitable for one-way effects like logging. Payloads still queued when the
// handler is closed are handled before the teardown runs.
func WithFireAndForgetEffectHandler[P any](
	ctx context.Context,
	config EffectScopeConfig,
	enum EffectEnum,
	handleFn func(context.Context, P),
	teardown ...func(),
) (context.Context, func() context.Context) {
	handler := handlers.NewFireAndForgetHandler(ctx, config, handleFn, normalizeTeardown(teardown))
	return install(ctx, enum, handler.EffectId, "fire/forget", handler.Close, handler)
}

// FireAndForgetEffect hands the payload to the handler for the given enum.
//
// It reports whether the payload was queued. Panics if no handler is registered.
func FireAndForgetEffect[P any](
	ctx context.Context,
	enum EffectEnum,
	payload P,
) bool {
	handler := sharedHelper.MustGetTypedValue[handlers.FireAndForgetHandler[P]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	return handler.FireAndForgetEffect(ctx, payload)
}

// HasEffectHandler reports whether a handler for enum is installed in ctx.
func HasEffectHandler(ctx context.Context, enum EffectEnum) bool {
	_, err := helper.GetHandler(ctx, enum)
	return err == nil
}

func install(
	ctx context.Context,
	enum EffectEnum,
	effectId, kind string,
	closeFn func(),
	handler any,
) (context.Context, func() context.Context) {
	ctxWith := context.WithValue(ctx, enum, handler)
	zap.L().Debug("created effect handler",
		zap.String("kind", kind),
		zap.String("effectId", effectId),
		zap.String("enum", string(enum)),
	)
	return ctxWith, func() context.Context {
		closeFn()
		zap.L().Debug("closed effect handler",
			zap.String("kind", kind),
			zap.String("effectId", effectId),
			zap.String("enum", string(enum)),
		)
		return ctx
	}
}

// normalizeTeardown flattens optional teardown functions into a single callable.
//
// Accepts either 0 or 1 teardown functions. Panics if more than one is passed.
func normalizeTeardown(teardown []func()) func() {
	switch len(teardown) {
	case 1:
		return teardown[0]
	case 0:
		return func() {}
	default:
		panic("normalizeTeardown: only one or zero teardown functions allowed")
	}
}
