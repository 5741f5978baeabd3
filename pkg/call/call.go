// Package call provides the dual-mode invocation wrapper used by the
// use-case operations: one deferred unit of work a caller may either
// block on or complete through a callback, with best-effort
// cooperative cancellation.
package call

import (
	"context"
	"sync/atomic"
)

// ErrCanceled is returned by Execute when the call was canceled before
// dispatch.
var ErrCanceled = canceledError{}

type canceledError struct{}

func (canceledError) Error() string { return "call canceled" }

// Call wraps one deferred operation producing a value or an error.
type Call[T any] struct {
	fn       func(ctx context.Context) (T, error)
	scope    *Scope
	canceled atomic.Bool
}

// New builds a call that will run fn on the given scope.
func New[T any](scope *Scope, fn func(ctx context.Context) (T, error)) *Call[T] {
	return &Call[T]{fn: fn, scope: scope}
}

// Execute runs the work synchronously and returns its result.
func (c *Call[T]) Execute(ctx context.Context) (T, error) {
	if c.canceled.Load() {
		var zero T
		return zero, ErrCanceled
	}
	return c.fn(ctx)
}

// Enqueue submits the work to the call's scope and invokes cb with the
// result when it completes. The cancellation flag is checked
// immediately before the work is dispatched; cancellation after
// dispatch has begun has no effect.
func (c *Call[T]) Enqueue(cb func(T, error)) {
	c.scope.Submit(func(ctx context.Context) {
		if c.canceled.Load() {
			return
		}
		v, err := c.fn(ctx)
		if cb != nil {
			cb(v, err)
		}
	})
}

// Cancel requests best-effort cancellation. It only prevents work that
// has not yet been dispatched.
func (c *Call[T]) Cancel() {
	c.canceled.Store(true)
}
