package flowtime

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrCanceled is returned by Result when a future was canceled before it
// produced a value. Cancellation is distinct from failure: callers should
// treat it as "retry later", and canceled results are never cached.
var ErrCanceled = errors.New("flowtime: evaluation canceled")

type taskState int

const (
	taskPending taskState = iota
	taskFinished
	taskFailed
	taskCanceled
)

// task is the shared single-assignment state behind Promise, Future and
// SharedFuture. Consumers hold reference-counted handles; the task is
// canceled when the last pending handle is released, never by an
// individual holder.
type task struct {
	mu          sync.Mutex
	state       taskState
	value       any
	err         error
	conts       []continuation
	handles     int
	cancelHooks []func()
	done        chan struct{}
}

// continuation is a boxed completion callback bound to the executor it
// must run on. A nil executor runs the callback on the settling goroutine.
type continuation struct {
	ex Executor
	fn func()
}

func newTask() *task {
	return &task{done: make(chan struct{})}
}

// addContinuation registers fn to run once the task settles. If the task
// has already settled, fn is dispatched immediately.
func (t *task) addContinuation(ex Executor, fn func()) {
	t.mu.Lock()
	if t.state == taskPending {
		t.conts = append(t.conts, continuation{ex: ex, fn: fn})
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	dispatch(continuation{ex: ex, fn: fn})
}

// onCanceled registers fn to run if the task ends up canceled.
func (t *task) onCanceled(fn func()) {
	t.mu.Lock()
	if t.state == taskPending {
		t.cancelHooks = append(t.cancelHooks, fn)
		t.mu.Unlock()
		return
	}
	canceled := t.state == taskCanceled
	t.mu.Unlock()
	if canceled {
		fn()
	}
}

// settle transitions the task into a terminal state. Settling a task
// that already produced a value or error is an invariant violation and
// panics; settling after cancellation is a benign race (the producer may
// finish after all waiters gave up) and is ignored.
func (t *task) settle(state taskState, value any, err error) {
	t.mu.Lock()
	if t.state != taskPending {
		prev := t.state
		t.mu.Unlock()
		if prev == taskCanceled {
			return
		}
		if state == taskCanceled {
			return
		}
		panic("flowtime: task settled twice")
	}
	t.state = state
	t.value = value
	t.err = err
	conts := t.conts
	t.conts = nil
	var hooks []func()
	if state == taskCanceled {
		hooks = t.cancelHooks
	}
	t.cancelHooks = nil
	t.mu.Unlock()

	// Waiters are released last so that by the time a blocking Result
	// returns, every continuation has at least been dispatched. With an
	// inline executor this makes completion effects synchronous.
	defer close(t.done)

	for _, h := range hooks {
		h()
	}
	for _, c := range conts {
		dispatch(c)
	}
}

func dispatch(c continuation) {
	if c.ex == nil {
		c.fn()
		return
	}
	c.ex.Submit(c.fn)
}

// retain adds a consumer handle.
func (t *task) retain() {
	t.mu.Lock()
	t.handles++
	t.mu.Unlock()
}

// release drops a consumer handle. When the last handle of a pending
// task goes away the task is canceled: nobody is left to observe a
// result.
func (t *task) release() {
	t.mu.Lock()
	t.handles--
	cancel := t.handles == 0 && t.state == taskPending
	t.mu.Unlock()
	if cancel {
		t.settle(taskCanceled, nil, ErrCanceled)
	}
}

func (t *task) snapshot() (taskState, any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.value, t.err
}

func (t *task) isSettled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != taskPending
}

func (t *task) isCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskCanceled
}

// wait blocks until the task settles and returns its terminal state.
func (t *task) wait() (taskState, any, error) {
	<-t.done
	return t.snapshot()
}

// futureHandle is one consumer's reference to a task. Canceling a handle
// is idempotent and affects only this holder's claim on the result.
type futureHandle struct {
	t        *task
	released atomic.Bool
}

func newHandle(t *task) *futureHandle {
	t.retain()
	return &futureHandle{t: t}
}

func (h *futureHandle) release() {
	if h.released.CompareAndSwap(false, true) {
		h.t.release()
	}
}
