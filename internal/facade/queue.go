package facade

import (
	"context"
	"sync"
)

// taskQueue runs one function per item with at most `workers` in flight.
// With one worker items run strictly in input order.
type taskQueue struct {
	permits chan struct{}
}

func newTaskQueue(workers int) *taskQueue {
	if workers < 1 {
		workers = 1
	}
	q := &taskQueue{permits: make(chan struct{}, workers)}
	for i := 0; i < workers; i++ {
		q.permits <- struct{}{}
	}
	return q
}

func (q *taskQueue) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.permits:
	}
	// both cases may have been ready
	if err := ctx.Err(); err != nil {
		q.permits <- struct{}{}
		return err
	}
	return nil
}

// run returns one error per item, indexed like items.  Once ctx is done no
// further item is started and the unstarted ones report ctx.Err().
func (q *taskQueue) run(ctx context.Context, items []string, fn func(context.Context, string) error) []error {
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		if err := q.acquire(ctx); err != nil {
			for j := i; j < len(items); j++ {
				errs[j] = err
			}
			break
		}
		wg.Add(1)
		go func(i int, item string) {
			defer func() {
				q.permits <- struct{}{}
				wg.Done()
			}()
			errs[i] = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()
	return errs
}
