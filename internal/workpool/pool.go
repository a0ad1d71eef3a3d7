// Package workpool runs blocking work on a bounded set of goroutines.
//
// Suspension points are task submission and result await. Results of
// independently submitted tasks arrive in no particular order; Map restores
// input order. Abandoning an await does not cancel a task already running.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"reporag/internal/domain"
)

const DefaultSize = 4

type Pool struct {
	pool *ants.Pool
	once sync.Once
}

func New(size int) (*Pool, error) {
	if size < 1 {
		size = DefaultSize
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{pool: pool}, nil
}

func (p *Pool) Size() int {
	return p.pool.Cap()
}

// Submit queues task, blocking while every worker is busy.
func (p *Pool) Submit(task func()) error {
	if err := p.pool.Submit(task); err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return domain.ErrClosed
		}
		return err
	}
	return nil
}

// Release stops the workers. It is safe to call more than once.
func (p *Pool) Release() {
	p.once.Do(p.pool.Release)
}

type result[T any] struct {
	value T
	err   error
}

// Do runs fn on the pool and waits for its result or for ctx to end.
func Do[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	done := make(chan result[T], 1)
	if err := p.Submit(func() {
		v, err := fn()
		done <- result[T]{v, err}
	}); err != nil {
		return zero, err
	}

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Map applies fn to every item on the pool and returns results in input
// order. The first error is returned once all submitted tasks finish.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(int, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = fn(i, item)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
