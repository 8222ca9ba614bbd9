// Package parallel runs independent search sessions concurrently. A
// clp.Manager is single-threaded, so parallelism comes from giving every task
// its own Manager; this package only bounds how many run at once.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// WorkerPool manages a fixed set of goroutines that execute submitted tasks.
// The task channel is buffered to twice the worker count, so Submit blocks
// once the pool is saturated.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for range maxWorkers {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task, ok := <-wp.taskChan:
			if !ok {
				return
			}
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit hands task to the pool. It blocks while the pool is saturated and
// fails if ctx ends or the pool is shut down first.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops the pool and waits for running tasks to finish. Tasks still
// queued may be dropped.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// Map runs fn on every item through wp and returns the results in input
// order. It returns early with an error only if a task cannot be submitted;
// tasks already submitted still complete before Map returns. Calling
// Shutdown while Map is in flight may drop queued tasks and hang Map.
func Map[T, R any](ctx context.Context, wp *WorkerPool, items []T, fn func(ctx context.Context, item T) R) ([]R, error) {
	out := make([]R, len(items))
	var wg sync.WaitGroup
	defer wg.Wait()
	for i, item := range items {
		wg.Add(1)
		err := wp.Submit(ctx, func() {
			defer wg.Done()
			out[i] = fn(ctx, item)
		})
		if err != nil {
			wg.Done()
			return nil, err
		}
	}
	wg.Wait()
	return out, nil
}
