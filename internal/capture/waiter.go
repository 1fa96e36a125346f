package capture

import (
	"context"
	"sync/atomic"
)

// Waiter is a single-resolution future. The first call to Resolve or
// Abandon flips the latch; every later call is a no-op that reports false.
type Waiter[T any] struct {
	done atomic.Bool
	ch   chan T
}

// NewWaiter returns an unresolved waiter.
func NewWaiter[T any]() *Waiter[T] {
	return &Waiter[T]{ch: make(chan T, 1)}
}

// Resolve delivers v if the waiter has not been resolved or abandoned yet.
func (w *Waiter[T]) Resolve(v T) bool {
	if !w.done.CompareAndSwap(false, true) {
		return false
	}
	w.ch <- v
	return true
}

// Abandon closes the latch without a value so a late Resolve is dropped.
func (w *Waiter[T]) Abandon() bool {
	return w.done.CompareAndSwap(false, true)
}

// Done reports whether the latch has flipped.
func (w *Waiter[T]) Done() bool {
	return w.done.Load()
}

// Wait blocks until the waiter is resolved or ctx ends. If ctx ends first the
// waiter is abandoned; if a resolution raced the cancellation, the resolved
// value wins.
func (w *Waiter[T]) Wait(ctx context.Context) (T, error) {
	select {
	case v := <-w.ch:
		return v, nil
	case <-ctx.Done():
		if w.Abandon() {
			var zero T
			return zero, ctx.Err()
		}
		return <-w.ch, nil
	}
}
