package flowtime

import "sync"

// Executor is an execution context that runs submitted functions.
//
// Every pipeline context owns one executor; all cache mutation and event
// delivery for the nodes of that context happens through it, which
// linearizes those operations without per-node locking of the hot paths.
type Executor interface {
	// Submit schedules fn to run on the executor. It must not block on
	// fn's completion.
	Submit(fn func())
}

// SerialExecutor runs submitted functions one at a time, in FIFO order,
// on a single dedicated goroutine. This is the single-writer execution
// context used by pipeline nodes: a completion continuation enqueued here
// is guaranteed not to race with any other continuation of the same
// context.
type SerialExecutor struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	quit   chan struct{}
	closed bool
	done   sync.WaitGroup
}

// NewSerialExecutor creates an executor and starts its worker goroutine.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	e.done.Add(1)
	go e.run()
	return e
}

// Submit enqueues fn. Submitting to a closed executor panics: it signals
// a lifecycle bug in the caller, not a recoverable condition.
func (e *SerialExecutor) Submit(fn func()) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		panic("flowtime: Submit on closed SerialExecutor")
	}
	e.queue = append(e.queue, fn)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Close stops the executor after draining already-submitted work and
// waits for the worker goroutine to exit.
func (e *SerialExecutor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	close(e.quit)
	e.done.Wait()
}

func (e *SerialExecutor) run() {
	defer e.done.Done()
	for {
		e.drain()
		select {
		case <-e.wake:
		case <-e.quit:
			e.drain()
			return
		}
	}
}

func (e *SerialExecutor) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		batch := e.queue
		e.queue = nil
		e.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}

// InlineExecutor runs submitted functions immediately on the calling
// goroutine. It collapses the asynchronous continuation machinery into
// synchronous calls, which makes single-threaded tests deterministic.
type InlineExecutor struct{}

// Submit runs fn immediately.
func (InlineExecutor) Submit(fn func()) { fn() }
