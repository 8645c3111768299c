package handlers_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davazp/iredb/effects/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnHandler_RunsConcurrently(t *testing.T) {
	handler := handlers.NewSpawnHandler(context.Background(), nil)
	defer handler.Close()

	const n = 4
	arrived := make(chan struct{}, n)
	release := make(chan struct{})
	var finished atomic.Int32

	for i := 0; i < n; i++ {
		require.True(t, handler.Spawn(context.Background(), func(ctx context.Context) {
			arrived <- struct{}{}
			<-release
			finished.Add(1)
		}))
	}
	// every goroutine reaches the barrier before any is released
	for i := 0; i < n; i++ {
		select {
		case <-arrived:
		case <-time.After(time.Second):
			t.Fatal("spawned goroutines are not running concurrently")
		}
	}
	close(release)
	handler.Close()
	assert.Equal(t, int32(n), finished.Load())
}

func TestSpawnHandler_CloseCancelsChildren(t *testing.T) {
	handler := handlers.NewSpawnHandler(context.Background(), nil)

	started := make(chan struct{})
	var childErr atomic.Value
	require.True(t, handler.Spawn(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		childErr.Store(ctx.Err())
	}))
	<-started
	handler.Close()

	assert.ErrorIs(t, childErr.Load().(error), context.Canceled)
	assert.False(t, handler.Spawn(context.Background(), func(context.Context) {}))
}
