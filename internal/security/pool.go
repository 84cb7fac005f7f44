package security

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

var (
	// ErrPoolClosed is returned by Do after Close.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrWorkerPanic wraps a panic recovered from a job.
	ErrWorkerPanic = errors.New("worker panicked")
)

type job struct {
	fn     func() error
	result chan error
}

// WorkerPool runs CPU-bound jobs (password hashing and verification) on a fixed
// set of goroutines so request handlers never hash on their own stack and the
// number of concurrent hashes is bounded.
type WorkerPool struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// NewWorkerPool starts workers goroutines fed by a queue of the given depth.
// Non-positive workers means runtime.NumCPU(); negative queue means unbuffered.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue < 0 {
		queue = 0
	}
	p := &WorkerPool{jobs: make(chan job, queue)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.result <- runJob(j.fn)
	}
}

// Do queues fn and blocks until it has run or ctx is done. If ctx ends after the
// job was queued the job still runs; its result is discarded.
func (p *WorkerPool) Do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job{fn: fn, result: res}:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, lets queued jobs finish and waits for the workers.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func runJob(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()
	return fn()
}
