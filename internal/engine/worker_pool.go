package engine

import (
	"context"
	"sync"
)

// job is the unit of work dispatched to a worker. result is buffered so a
// worker never blocks on a caller that stopped waiting.
type job[T, R any] struct {
	ctx     context.Context
	payload T
	result  chan outcome[R]
}

type outcome[R any] struct {
	value R
	err   error
}

// workerPool is a fixed-size goroutine pool with a bounded input queue.
type workerPool[T, R any] struct {
	queue     chan job[T, R]
	process   func(ctx context.Context, t T) (R, error)
	wg        sync.WaitGroup
	drainOnce sync.Once
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity size.
func newWorkerPool[T, R any](ctx context.Context, n, size int, fn func(context.Context, T) (R, error)) *workerPool[T, R] {
	if n < 1 {
		n = 1
	}
	p := &workerPool[T, R]{
		queue:   make(chan job[T, R], size),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T, R]) run(ctx context.Context) {
	for {
		select {
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			if err := j.ctx.Err(); err != nil {
				j.result <- outcome[R]{err: err}
				continue
			}
			v, err := p.process(j.ctx, j.payload)
			j.result <- outcome[R]{value: v, err: err}
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues a job without blocking. It returns false if the queue is
// full; otherwise the returned channel receives exactly one outcome.
func (p *workerPool[T, R]) Submit(ctx context.Context, t T) (<-chan outcome[R], bool) {
	result := make(chan outcome[R], 1)
	select {
	case p.queue <- job[T, R]{ctx: ctx, payload: t, result: result}:
		return result, true
	default:
		return nil, false
	}
}

// Drain closes the queue and waits for all workers to finish.
func (p *workerPool[T, R]) Drain() {
	p.drainOnce.Do(func() { close(p.queue) })
	p.wg.Wait()
}

// QueueLen returns how many jobs are currently queued.
func (p *workerPool[T, R]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the total queue capacity.
func (p *workerPool[T, R]) QueueCap() int {
	return cap(p.queue)
}
