// Package parallel provides the worker-pool infrastructure shared by the
// ingestion engine and the compute kernels.
//
// Work is data-parallel: items are independent chunks (byte ranges during
// ingestion, row ranges inside kernels) distributed over a fixed-size pool
// via a fan-out/fan-in pattern. Order-preserving variants collect results
// by original index so callers get deterministic output regardless of
// worker count or scheduling. The error-aware variant reports the failure
// with the smallest item index, which keeps fail-fast error reporting
// deterministic as well.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing.
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a worker pool. A non-positive size means one
// worker per CPU core.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// NumWorkers returns the pool size.
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// Close shuts down the worker pool.
func (wp *WorkerPool) Close() {
	wp.cancel()
}

// Process executes work items in parallel without ordering guarantees.
func Process[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(T) R,
) []R {
	if len(items) == 0 {
		return nil
	}

	itemCh := make(chan T, len(items))
	resultCh := make(chan R, len(items))

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-wp.ctx.Done():
					return
				default:
					resultCh <- worker(item)
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for _, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- item:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, 0, len(items))
	for result := range resultCh {
		results = append(results, result)
	}

	return results
}

// ProcessIndexed executes work items in parallel while preserving order:
// results[i] is the output for items[i] regardless of completion order.
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(int, T) R,
) []R {
	if len(items) == 0 {
		return nil
	}

	itemCh := make(chan indexedItem[T], len(items))
	resultCh := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-wp.ctx.Done():
					return
				default:
					resultCh <- indexedResult[R]{
						index:  item.index,
						result: worker(item.index, item.value),
					}
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	for result := range resultCh {
		results[result.index] = result.result
	}

	return results
}

// ProcessIndexedErr is the fail-fast variant used by ingestion. Results
// keep their item order. When one or more workers fail, the error of the
// lowest-indexed failing item is returned (not the first to complete):
// a failure never interrupts items ordered before it, so those still run
// and may report an even earlier failure, while items ordered after it
// are cancelled or skipped. results[i] is the zero value for every failed
// or skipped item; the caller releases any resources held by partial
// results.
func ProcessIndexedErr[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		errIndex = -1
		firstErr error
		cancels  = make([]context.CancelFunc, len(items))
	)

	// fail records a failure and aborts in-flight items ordered after it.
	// A later failure at a higher index loses and changes nothing.
	fail := func(idx int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if errIndex != -1 && errIndex <= idx {
			return
		}
		errIndex = idx
		firstErr = err
		for i := idx + 1; i < len(items); i++ {
			if cancels[i] != nil {
				cancels[i]()
			}
		}
	}

	itemCh := make(chan indexedItem[T], len(items))
	results := make([]R, len(items))

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-runCtx.Done():
					return
				default:
				}
				mu.Lock()
				if errIndex != -1 && errIndex < item.index {
					mu.Unlock()
					continue
				}
				itemCtx, itemCancel := context.WithCancel(runCtx)
				cancels[item.index] = itemCancel
				mu.Unlock()
				result, err := worker(itemCtx, item.index, item.value)
				itemCancel()
				if err != nil {
					fail(item.index, err)
					continue
				}
				// Indices are disjoint across workers, so the slice can
				// be written without the lock.
				results[item.index] = result
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-runCtx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

type indexedItem[T any] struct {
	index int
	value T
}

type indexedResult[R any] struct {
	index  int
	result R
}
