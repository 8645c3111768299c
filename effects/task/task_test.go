package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davazp/iredb/effects"
	"github.com/davazp/iredb/effects/log"
	"github.com/davazp/iredb/effects/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskEffect_Success(t *testing.T) {
	ctx := context.Background()
	ctx, endOfLogHandler := log.WithTestEffectHandler(ctx)
	defer endOfLogHandler()

	ctx, endOfTaskHandler := task.WithEffectHandler(ctx)
	defer endOfTaskHandler()

	ch := task.Effect(ctx, func(ctx context.Context) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "ok", nil
	})

	select {
	case res := <-ch:
		require.NoError(t, res.Err)
		assert.Equal(t, "ok", res.Value)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task result")
	}
	_, open := <-ch
	assert.False(t, open, "result channel is closed after the single result")
}

func TestTaskEffect_Error(t *testing.T) {
	ctx, endOfTaskHandler := task.WithEffectHandler(context.Background())
	defer endOfTaskHandler()

	boom := errors.New("boom")
	_, err := task.Await(task.Effect(ctx, func(ctx context.Context) (int, error) {
		return 0, boom
	}))
	require.ErrorIs(t, err, boom)
}

func TestTaskEffect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ctx, endOfTaskHandler := task.WithEffectHandler(ctx)
	defer endOfTaskHandler()

	ch := task.Effect(ctx, func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "too late", nil
		}
	})

	select {
	case res := <-ch:
		require.ErrorIs(t, res.Err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task result")
	}
}

func TestTaskEffect_RunsInParallel(t *testing.T) {
	ctx, endOfTaskHandler := task.WithEffectHandler(context.Background())
	defer endOfTaskHandler()

	const n = 5
	barrier := make(chan struct{})
	arrived := make(chan struct{}, n)

	results := make([]<-chan task.Result[int], 0, n)
	for i := 0; i < n; i++ {
		results = append(results, task.Effect(ctx, func(ctx context.Context) (int, error) {
			arrived <- struct{}{}
			<-barrier
			return i * 2, nil
		}))
	}
	for i := 0; i < n; i++ {
		select {
		case <-arrived:
		case <-time.After(time.Second):
			t.Fatal("tasks are not running concurrently")
		}
	}
	close(barrier)

	for i, ch := range results {
		v, err := task.Await(ch)
		require.NoError(t, err)
		assert.Equal(t, i*2, v)
	}
}

func TestTaskEffect_Panic(t *testing.T) {
	ctx, endOfTaskHandler := task.WithEffectHandler(context.Background())
	defer endOfTaskHandler()

	_, err := task.Await(task.Effect(ctx, func(ctx context.Context) (int, error) {
		panic("kaboom")
	}))
	require.ErrorContains(t, err, "kaboom")
}

func TestTaskEffect_AfterEnd(t *testing.T) {
	ctx, endOfTaskHandler := task.WithEffectHandler(context.Background())
	endOfTaskHandler()

	_, err := task.Await(task.Effect(ctx, func(ctx context.Context) (int, error) {
		return 1, nil
	}))
	require.ErrorIs(t, err, effects.ErrScopeClosed)
}

func TestTaskEffect_PanicsWithoutHandler(t *testing.T) {
	assert.Panics(t, func() {
		task.Effect(context.Background(), func(ctx context.Context) (int, error) { return 0, nil })
	})
}
