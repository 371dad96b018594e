package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job
type Result interface {
	GetError() error
}

type queued struct {
	index int
	job   Job
}

// Pool runs jobs on a fixed number of workers and returns results in submission order
type Pool struct {
	workers int
	queue   chan queued
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	results   []Result
	submitted int
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx; cancelling ctx stops the workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		queue:   make(chan queued, workers),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.queue:
			if !ok {
				return
			}
			res := q.job.Execute(p.ctx)
			p.mu.Lock()
			p.results[q.index] = res
			p.mu.Unlock()
		}
	}
}

// Submit queues a job. It reports false once the pool is cancelled.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	p.mu.Lock()
	idx := p.submitted
	p.submitted++
	p.results = append(p.results, nil)
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- queued{index: idx, job: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns one entry per
// submitted job. Jobs that never ran are nil.
func (p *Pool) Wait() []Result {
	p.closeOnce.Do(func() { close(p.queue) })
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, len(p.results))
	copy(out, p.results)
	return out
}

// Shutdown cancels outstanding work and waits for the workers to exit
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
