// Package task runs work on a bounded set of workers under a hard deadline.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	ErrDeadlineExceeded = errors.New("task deadline exceeded")
	ErrPanic            = errors.New("task panicked")
)

// Runner ограничивает число одновременных задач и время каждой из них.
type Runner struct {
	slots   *semaphore.Weighted
	timeout time.Duration
}

func NewRunner(workers int, timeout time.Duration) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Runner{
		slots:   semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
	}
}

func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

type outcome[T any] struct {
	val T
	err error
}

// Run executes fn on a worker goroutine. The caller gets fn's result, or
// ErrDeadlineExceeded once the runner's timeout elapses (waiting for a free
// slot counts against it). On timeout fn's context is cancelled and its late
// result is dropped; the worker keeps its slot until fn returns.
func Run[T any](ctx context.Context, r *Runner, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	taskCtx, cancel := context.WithTimeout(ctx, r.timeout)

	if err := r.slots.Acquire(taskCtx, 1); err != nil {
		cancel()
		return zero, r.deadlineErr(ctx)
	}

	done := make(chan outcome[T], 1)
	go func() {
		defer r.slots.Release(1)
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				done <- outcome[T]{err: fmt.Errorf("%w: %v", ErrPanic, p)}
			}
		}()

		val, err := fn(taskCtx)
		done <- outcome[T]{val: val, err: err}
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-taskCtx.Done():
		// воркер бросаем, его ответ уйдёт в буферизованный канал и пропадёт
		cancel()
		return zero, r.deadlineErr(ctx)
	}
}

func (r *Runner) deadlineErr(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrDeadlineExceeded
}
