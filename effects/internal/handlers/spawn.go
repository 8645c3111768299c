package handlers

import (
	"context"
	"sync"
)

// NewSpawnHandler returns a handler that runs each effect in its own
// goroutine. Close cancels the running goroutines and waits for them.
func NewSpawnHandler(ctx context.Context, teardown func()) *SpawnHandler {
	h := &SpawnHandler{effectScope: newEffectScope(ctx, teardown)}
	h.stop = h.children.Wait
	return h
}

type SpawnHandler struct {
	*effectScope
	children sync.WaitGroup
}

// Spawn runs fn on a new goroutine with a context that ends with either ctx or
// the scope. It returns false, without running fn, once the scope is closed.
func (sh *SpawnHandler) Spawn(ctx context.Context, fn func(context.Context)) bool {
	if !sh.enter() {
		return false
	}
	defer sh.leave()

	childCtx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(sh.ctx, cancel)

	sh.children.Add(1)
	go func() {
		defer sh.children.Done()
		defer cancel()
		defer stopAfter()
		fn(childCtx)
	}()
	return true
}
