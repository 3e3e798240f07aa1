package parallel

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// Pool runs independent tasks on a bounded number of goroutines. The first
// task error cancels the context handed to the remaining tasks.
type Pool struct {
	group   *errgroup.Group
	ctx     context.Context
	workers int
}

// NewPool creates a pool bound to ctx. A non-positive worker count uses
// GOMAXPROCS.
func NewPool(ctx context.Context, workers int) (*Pool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	return &Pool{group: group, ctx: groupCtx, workers: workers}, nil
}

// Workers returns the concurrency limit of the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// Go runs task on the pool, blocking while all workers are busy. A panic in
// task is recovered and returned as its error.
func (p *Pool) Go(task func(ctx context.Context) error) {
	p.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("parallel: task panicked: %v", r)
			}
		}()
		return task(p.ctx)
	})
}

// Wait blocks until every task has returned and reports the first error.
func (p *Pool) Wait() error {
	return p.group.Wait()
}
