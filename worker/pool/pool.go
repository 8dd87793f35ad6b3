package pool

import (
	"context"
	"runtime"
	"sync"
)

type Task func(ctx context.Context)

// WorkerPool runs submitted tasks on their own goroutines while allowing at
// most maxWorkers of them to execute at once. The rest wait for a slot.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewWorkerPool returns a pool of maxWorkers slots, or one slot per CPU when
// maxWorkers is not positive.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

// Submit queues task. If ctx is cancelled before a slot frees up the task is
// dropped without running.
func (p *WorkerPool) Submit(ctx context.Context, task Task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			task(ctx)
		case <-ctx.Done():
		}
	}()
}

// Go blocks the caller until a slot is free and then runs task on its own
// goroutine. If ctx is done first, task is not run and ctx.Err() is returned.
// The task's context is detached from ctx's cancellation so work that was
// accepted always runs to completion.
func (p *WorkerPool) Go(ctx context.Context, task Task) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		task(context.WithoutCancel(ctx))
	}()
	return nil
}

func (p *WorkerPool) Size() int {
	return cap(p.sem)
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
