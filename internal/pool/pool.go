// Package pool provides a bounded worker pool and a per-key minimum-interval
// rate limiter shared by the fetch, scoring, and enrichment paths.
package pool

import "sync"

// Pool runs submitted jobs with bounded concurrency.
type Pool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// New creates a pool allowing at most maxWorkers concurrent jobs.
func New(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{semaphore: make(chan struct{}, maxWorkers)}
}

// Submit schedules a job. It blocks while the pool is saturated, which keeps
// the number of in-flight goroutines bounded by the pool size.
func (p *Pool) Submit(job func()) {
	p.wg.Add(1)
	p.semaphore <- struct{}{}
	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}
