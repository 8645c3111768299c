package handlers

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// effectScope is the lifetime shared by every handler kind. Senders bracket
// each hand-off with enter/leave so Close can wait for them before draining.
type effectScope struct {
	EffectId string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	once     sync.Once

	stop     func()
	teardown func()
}

func newEffectScope(ctx context.Context, teardown func()) *effectScope {
	ctx, cancel := context.WithCancel(ctx)
	if teardown == nil {
		teardown = func() {}
	}
	return &effectScope{
		EffectId: uuid.New().String(),
		ctx:      ctx,
		cancel:   cancel,
		stop:     func() {},
		teardown: teardown,
	}
}

// Done is closed when the scope is closed or its parent context ends.
func (es *effectScope) Done() <-chan struct{} {
	return es.ctx.Done()
}

func (es *effectScope) enter() bool {
	es.mu.RLock()
	defer es.mu.RUnlock()
	if es.closed {
		return false
	}
	es.inflight.Add(1)
	return true
}

func (es *effectScope) leave() {
	es.inflight.Done()
}

// Close stops the workers, settles whatever is still queued and runs the
// teardown. Calling it more than once is a no-op.
func (es *effectScope) Close() {
	es.once.Do(func() {
		es.mu.Lock()
		es.closed = true
		es.mu.Unlock()

		es.cancel()
		es.inflight.Wait()
		es.stop()
		es.teardown()
		zap.L().Debug("effect scope closed", zap.String("effectId", es.EffectId))
	})
}
