package task

import (
	"context"
	"fmt"

	"github.com/davazp/iredb/effects/internal/handlers"
	"github.com/davazp/iredb/effects/internal/helper"
	effectmodel "github.com/davazp/iredb/effects/internal/model"
	sharedHelper "github.com/davazp/iredb/shared/helper"
	"go.uber.org/zap"
)

// Result is the outcome of a task.
type Result[R any] = effectmodel.ResumableResult[R]

// Payload defines an asynchronous operation that returns a value of type R.
type Payload[R any] func(context.Context) (R, error)

// WithEffectHandler registers the task handler. Every task runs on its own
// goroutine, so tasks never wait for one another. The returned end function
// cancels running tasks and waits for them to return.
func WithEffectHandler(ctx context.Context) (context.Context, func() context.Context) {
	handler := handlers.NewSpawnHandler(ctx, nil)
	ctxWith := context.WithValue(ctx, effectmodel.EffectTask, handler)
	zap.L().Debug("created task effect handler", zap.String("effectId", handler.EffectId))

	return ctxWith, func() context.Context {
		handler.Close()
		zap.L().Debug("closed task effect handler", zap.String("effectId", handler.EffectId))
		return ctx
	}
}

// Effect starts fn and returns a channel that receives its result exactly once
// and is then closed. If ctx ends first the result carries ctx.Err(). A panic
// in fn is reported as an error result.
func Effect[R any](ctx context.Context, fn Payload[R]) <-chan Result[R] {
	handler := sharedHelper.MustGetTypedValue[*handlers.SpawnHandler](
		func() (any, error) {
			return helper.GetHandler(ctx, effectmodel.EffectTask)
		},
	)

	done := make(chan Result[R], 1)
	spawned := handler.Spawn(ctx, func(ctx context.Context) {
		defer close(done)
		done <- run(ctx, fn)
	})
	if !spawned {
		done <- Result[R]{Err: effectmodel.ErrScopeClosed}
		close(done)
	}
	return done
}

// Await waits for a result produced by Effect.
func Await[R any](ch <-chan Result[R]) (R, error) {
	res, ok := <-ch
	if !ok {
		var zero R
		return zero, effectmodel.ErrScopeClosed
	}
	return res.Value, res.Err
}

func run[R any](ctx context.Context, fn Payload[R]) (res Result[R]) {
	if err := ctx.Err(); err != nil {
		return Result[R]{Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result[R]{Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()

	v, err := fn(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil && err == nil {
		return Result[R]{Err: ctxErr}
	}
	return Result[R]{Value: v, Err: err}
}
