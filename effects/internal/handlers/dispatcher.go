package handlers

import (
	"context"
	"sync"
)

// dispatcher runs one goroutine per channel. Messages with the same partition
// key always land on the same channel and are handled in send order.
type dispatcher[T any] struct {
	chs   []chan T
	keyOf func(T) string // nil: everything goes to the first channel
	wg    sync.WaitGroup
}

func newDispatcher[T any](
	ctx context.Context,
	numWorkers, bufferSize int,
	keyOf func(T) string,
	handleFn func(context.Context, T),
) *dispatcher[T] {
	d := &dispatcher[T]{
		chs:   make([]chan T, numWorkers),
		keyOf: keyOf,
	}
	for i := range d.chs {
		ch := make(chan T, bufferSize)
		d.chs[i] = ch
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case msg := <-ch:
					handleFn(ctx, msg)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return d
}

func (d *dispatcher[T]) channelOf(msg T) chan T {
	if d.keyOf == nil {
		return d.chs[0]
	}
	return d.chs[getIndexByHash(d.keyOf(msg), len(d.chs))]
}

// drain waits for the workers to stop, then hands every message still
// buffered to fn.
func (d *dispatcher[T]) drain(fn func(T)) {
	d.wg.Wait()
	for _, ch := range d.chs {
		drainChannel(ch, fn)
	}
}

func drainChannel[T any](ch chan T, fn func(T)) {
	for {
		select {
		case msg := <-ch:
			fn(msg)
		default:
			return
		}
	}
}
