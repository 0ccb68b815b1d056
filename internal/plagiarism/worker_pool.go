package plagiarism

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPoolClosed is returned by Submit after Close
var ErrPoolClosed = errors.New("worker pool closed")

type Job interface {
	Execute(ctx context.Context) error
}

type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool starts a pool of size workers. A size of zero or less sizes
// the pool from the CPU count, keeping a quarter of the cores in reserve.
func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		totalCPU := runtime.NumCPU()
		systemReserve := max(1, totalCPU/4)
		size = max(1, totalCPU-systemReserve)
	}
	log.Debug().
		Int("totalCPU", runtime.NumCPU()).
		Int("workers", size).
		Msg("Worker pool initialized")
	poolCtx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2), // Buffer 2x the worker count
		ctx:      poolCtx,
		cancel:   cancel,
	}

	pool.start()

	return pool
}

func (p *WorkerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker drains the queue until it is closed. Jobs queued after the pool
// context is cancelled still run so they can observe the cancellation and
// release whoever waits on them.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if err := job.Execute(p.ctx); err != nil && !isContextErr(err) {
			log.Error().Err(err).Int("worker", id).Msg("Worker failed to execute job")
		}
	}
}

// Submit queues a job, blocking while the queue is full. It gives up when
// ctx or the pool itself is cancelled.
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	case p.jobQueue <- job:
		return nil
	}
}

// Close stops accepting jobs, lets the workers drain the queue and waits for
// them to exit.
func (p *WorkerPool) Close() {
	p.cancel()

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return p.workers
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
