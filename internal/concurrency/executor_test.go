package concurrency

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutorRunsSubmittedTasks(t *testing.T) {
	e := NewExecutor(4)
	defer e.Close()

	var n int64
	const total = 200
	for i := 0; i < total; i++ {
		if err := e.Submit(func() { atomic.AddInt64(&n, 1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&n) != total && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt64(&n); got != total {
		t.Fatalf("ran %d tasks, want %d", got, total)
	}
}

func TestExecutorRejectsAfterClose(t *testing.T) {
	e := NewExecutor(1)
	e.Close()
	if err := e.Submit(func() {}); err != ErrExecutorClosed {
		t.Fatalf("Submit after Close = %v, want ErrExecutorClosed", err)
	}
}
