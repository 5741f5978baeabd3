package call

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteReturnsResult(t *testing.T) {
	scope := NewScope(context.Background(), 2)
	defer scope.Close()

	c := New(scope, func(context.Context) (int, error) { return 42, nil })
	v, err := c.Execute(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("execute = %d, %v", v, err)
	}
}

func TestExecutePropagatesError(t *testing.T) {
	scope := NewScope(context.Background(), 1)
	defer scope.Close()

	boom := errors.New("boom")
	c := New(scope, func(context.Context) (string, error) { return "", boom })
	if _, err := c.Execute(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestEnqueueDeliversCallback(t *testing.T) {
	scope := NewScope(context.Background(), 2)
	defer scope.Close()

	done := make(chan struct{})
	c := New(scope, func(context.Context) (int, error) { return 7, nil })
	c.Enqueue(func(v int, err error) {
		if v != 7 || err != nil {
			t.Errorf("callback got %d, %v", v, err)
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("callback never invoked")
	}
}

func TestCancelBeforeExecute(t *testing.T) {
	scope := NewScope(context.Background(), 1)
	defer scope.Close()

	var ran atomic.Bool
	c := New(scope, func(context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	})
	c.Cancel()

	if _, err := c.Execute(context.Background()); !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if ran.Load() {
		t.Fatalf("canceled call ran anyway")
	}
}

func TestCancelBeforeDispatchSkipsWork(t *testing.T) {
	// a single busy worker delays dispatch long enough to cancel
	scope := NewScope(context.Background(), 1)
	defer scope.Close()

	gate := make(chan struct{})
	scope.Submit(func(context.Context) { <-gate })

	var ran atomic.Bool
	c := New(scope, func(context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	})
	c.Enqueue(func(int, error) { ran.Store(true) })
	c.Cancel()
	close(gate)

	time.Sleep(100 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("canceled call dispatched")
	}
}

func TestScopeCloseStopsWorkers(t *testing.T) {
	scope := NewScope(context.Background(), 2)

	started := make(chan struct{})
	scope.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started
	scope.Close()

	// submissions after close are dropped, not deadlocked
	doneSubmit := make(chan struct{})
	go func() {
		scope.Submit(func(context.Context) {})
		close(doneSubmit)
	}()
	select {
	case <-doneSubmit:
	case <-time.After(time.Second):
		t.Fatalf("submit after close blocked")
	}
}
