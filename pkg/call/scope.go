package call

import (
	"context"
	"sync"
)

// Scope is an explicit execution context for deferred calls: a small
// worker pool tasks are submitted to, replacing any ambient global
// scheduler. Closing the scope's context stops the workers; tasks
// observe it through the ctx they receive.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func(ctx context.Context)
	wg     sync.WaitGroup
}

// NewScope starts a scope with the given number of workers.
func NewScope(parent context.Context, workers int) *Scope {
	if workers <= 0 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Scope{ctx: ctx, cancel: cancel, tasks: make(chan func(context.Context), 256)}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *Scope) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.tasks:
			task(s.ctx)
		}
	}
}

// Submit hands a task to the pool. It blocks if the queue is full and
// drops the task if the scope is already closed.
func (s *Scope) Submit(task func(ctx context.Context)) {
	select {
	case <-s.ctx.Done():
	case s.tasks <- task:
	}
}

// Close stops the workers. Queued tasks that have not started are
// dropped.
func (s *Scope) Close() {
	s.cancel()
	s.wg.Wait()
}
