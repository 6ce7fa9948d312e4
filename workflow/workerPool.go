package workflow

import "sync"

// WorkerPool bounds how many comparison units run at the same time. Only
// leaf units acquire slots; per-config orchestration runs in plain
// goroutines so a config waiting on its units never holds a slot.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{sem: make(chan struct{}, size)}
}

// Go runs fn once a slot is free and blocks until the slot is acquired.
func (p *WorkerPool) Go(fn func()) {
	p.sem <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		fn()
	}()
}

// Wait blocks until every submitted function has returned.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
