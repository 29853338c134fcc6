// Package async provides a single-slot result cell. A producer publishes values
// and any number of waiters can block for the next published value, while the
// most recent value stays readable without waiting.
package async

import (
	"context"
	"sync"
)

// Future resolves once with the value passed to the next Cell.Publish.
type Future[T any] struct {
	done  chan struct{}
	value T
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Done is closed when the future has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Value returns the resolved value. Only meaningful once Done is closed.
func (f *Future[T]) Value() T {
	return f.value
}

// Resolved reports whether the future has a value yet.
func (f *Future[T]) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type Cell[T any] struct {
	mu        sync.Mutex
	value     T
	published bool
	next      *Future[T]
}

func NewCell[T any]() *Cell[T] {
	return &Cell[T]{}
}

// Publish stores v for Current and resolves the outstanding future, if any.
// The next call to AwaitNext will hand out a fresh future.
func (c *Cell[T]) Publish(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = v
	c.published = true

	if c.next == nil {
		return
	}
	c.next.value = v
	close(c.next.done)
	c.next = nil
}

// AwaitNext returns the future for the next published value. Calls made
// before that publish all share the same future.
func (c *Cell[T]) AwaitNext() *Future[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.next == nil {
		c.next = newFuture[T]()
	}
	return c.next
}

// Current returns the last published value, and false if nothing has been
// published yet.
func (c *Cell[T]) Current() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.published
}
