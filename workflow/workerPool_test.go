package workflow

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	const size = 3
	pool := NewWorkerPool(size)

	var current, peak int64
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		pool.Go(func() {
			n := atomic.AddInt64(&current, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&current, -1)
		})
	}
	pool.Wait()

	if peak > size {
		t.Fatalf("expected at most %d concurrent workers, observed %d", size, peak)
	}
	if peak == 0 {
		t.Fatal("no work ran")
	}
}

func TestWorkerPool_WaitDrainsAllWork(t *testing.T) {
	pool := NewWorkerPool(2)

	var done int64
	for i := 0; i < 50; i++ {
		pool.Go(func() {
			atomic.AddInt64(&done, 1)
		})
	}
	pool.Wait()

	if done != 50 {
		t.Fatalf("expected 50 completed tasks, got %d", done)
	}
}

func TestWorkerPool_MinimumSizeOne(t *testing.T) {
	pool := NewWorkerPool(0)

	ran := false
	pool.Go(func() { ran = true })
	pool.Wait()

	if !ran {
		t.Fatal("task did not run")
	}
}
