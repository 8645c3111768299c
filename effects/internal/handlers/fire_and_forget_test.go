package handlers_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davazp/iredb/effects/internal/handlers"
	effectmodel "github.com/davazp/iredb/effects/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireAndForgetHandler_BasicExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan string, 1)
	handler := handlers.NewFireAndForgetHandler(
		ctx,
		effectmodel.EffectScopeConfig{BufferSize: 10},
		func(ctx context.Context, msg string) {
			done <- msg
		},
		nil,
	)
	defer handler.Close()

	require.True(t, handler.FireAndForgetEffect(ctx, "hello"))

	select {
	case got := <-done:
		assert.Equal(t, "hello", got)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for handler")
	}
}

func TestFireAndForgetHandler_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	handler := handlers.NewFireAndForgetHandler(
		ctx,
		effectmodel.EffectScopeConfig{BufferSize: 10},
		func(ctx context.Context, msg string) {
			called.Store(true)
		},
		nil,
	)
	defer handler.Close()

	assert.False(t, handler.FireAndForgetEffect(ctx, "should-not-send"))
	assert.False(t, called.Load(), "handler should not have been called")
}

func TestFireAndForgetHandler_CloseFlushesQueued(t *testing.T) {
	ctx := context.Background()

	release := make(chan struct{})
	var (
		mu  sync.Mutex
		got []int
	)
	handler := handlers.NewFireAndForgetHandler(
		ctx,
		effectmodel.EffectScopeConfig{BufferSize: 8},
		func(ctx context.Context, n int) {
			if n == 0 {
				<-release
			}
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		},
		nil,
	)

	for i := 0; i < 5; i++ {
		require.True(t, handler.FireAndForgetEffect(ctx, i))
	}
	close(release)
	handler.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, got)
}

func TestFireAndForgetHandler_RejectsAfterClose(t *testing.T) {
	var tornDown atomic.Int32
	handler := handlers.NewFireAndForgetHandler(
		context.Background(),
		effectmodel.EffectScopeConfig{},
		func(context.Context, string) {},
		func() { tornDown.Add(1) },
	)
	handler.Close()
	handler.Close()

	assert.Equal(t, int32(1), tornDown.Load())
	assert.False(t, handler.FireAndForgetEffect(context.Background(), "late"))
}
