package plagiarism

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type countJob struct {
	n  *atomic.Int64
	wg *sync.WaitGroup
}

func (j countJob) Execute(ctx context.Context) error {
	defer j.wg.Done()
	j.n.Add(1)
	return nil
}

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 3)
	defer pool.Close()

	if pool.Size() != 3 {
		t.Fatalf("Size = %d, want 3", pool.Size())
	}

	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := pool.Submit(context.Background(), countJob{n: &n, wg: &wg}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	if n.Load() != 100 {
		t.Fatalf("ran %d jobs, want 100", n.Load())
	}
}

func TestWorkerPoolDefaultSize(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 0)
	defer pool.Close()
	if pool.Size() < 1 {
		t.Fatalf("Size = %d, want at least 1", pool.Size())
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1)
	pool.Close()
	pool.Close()

	var wg sync.WaitGroup
	var n atomic.Int64
	err := pool.Submit(context.Background(), countJob{n: &n, wg: &wg})
	if !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestWorkerPoolSubmitCancelledContext(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1)
	defer pool.Close()

	// fill the worker and the queue with jobs blocked on release
	release := make(chan struct{})
	for i := 0; i < 1+2; i++ {
		err := pool.Submit(context.Background(), blockingJob{release: release})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Submit(ctx, blockingJob{release: release})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)
}

type blockingJob struct {
	release <-chan struct{}
}

func (j blockingJob) Execute(ctx context.Context) error {
	<-j.release
	return nil
}
