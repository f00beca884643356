// Package workerpool implements the three worker-pool concurrency
// modes used by both the server's per-operation dispatch and the
// client's per-server op fan-out (§4.8): sequential, thread_pool, and
// thread_on_demand. All three satisfy the same Pool interface so a
// caller can be written once and reconfigured at startup.
package workerpool

import (
	"sync"

	"github.com/pkg/errors"
)

// Result is what a submitted task returns: a byte/op count on success,
// paired with an error.
type Result struct {
	N   int64
	Err error
}

// Task is a unit of work submitted to a Pool.
type Task func() (int64, error)

// Future is a handle to a Task's eventual Result.
type Future interface {
	// Wait blocks until the task completes and returns its Result.
	Wait() Result
}

// Pool launches Tasks under one of the three concurrency modes.
type Pool interface {
	// Launch submits f and returns a Future for its result.
	Launch(f Task) Future
	// LaunchNoFuture fires f without a way to observe its result,
	// matching `launch_no_future` (§4.8).
	LaunchNoFuture(f Task)
	// Close waits for any outstanding work this pool owns to finish
	// and releases its resources (thread_pool's worker goroutines).
	Close()
}

// immediateFuture is returned by the sequential pool: the task has
// already run by the time Launch returns.
type immediateFuture struct{ result Result }

func (f immediateFuture) Wait() Result { return f.result }

// chanFuture is returned by thread_pool and thread_on_demand: the
// task runs on another goroutine and signals completion over a
// buffered channel.
type chanFuture struct{ ch chan Result }

func (f chanFuture) Wait() Result {
	r, ok := <-f.ch
	if !ok {
		return Result{Err: errors.New("workerpool: future abandoned")}
	}
	return r
}

func runTask(f Task) Result {
	n, err := f()
	return Result{N: n, Err: err}
}

// New constructs a Pool for the given mode ("sequential", "thread_pool",
// "thread_on_demand"); threads configures the worker count for
// thread_pool and is ignored otherwise.
func New(mode string, threads int) (Pool, error) {
	switch mode {
	case "sequential", "":
		return NewSequential(), nil
	case "thread_pool":
		return NewThreadPool(threads), nil
	case "thread_on_demand":
		return NewThreadOnDemand(), nil
	default:
		return nil, errors.Errorf("workerpool: unknown mode %q", mode)
	}
}
