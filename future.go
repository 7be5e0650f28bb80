package flowtime

import "errors"

// Promise is the producer side of an asynchronous result. Exactly one of
// SetResult or SetFailed must eventually be called; calling either twice
// panics. A promise whose consumers have all canceled settles itself, and
// a late SetResult/SetFailed on it is silently ignored.
type Promise[T any] struct {
	t *task
}

// NewPromise creates an unsettled promise.
func NewPromise[T any]() Promise[T] {
	return Promise[T]{t: newTask()}
}

// Future returns a consumer handle for the promise's result.
func (p Promise[T]) Future() Future[T] {
	return Future[T]{h: newHandle(p.t)}
}

// SetResult fulfills the promise with a value.
func (p Promise[T]) SetResult(v T) {
	p.t.settle(taskFinished, v, nil)
}

// SetFailed rejects the promise. Failing with ErrCanceled (or an error
// wrapping it) records a cancellation rather than a failure.
func (p Promise[T]) SetFailed(err error) {
	if err == nil {
		panic("flowtime: SetFailed with nil error")
	}
	if errors.Is(err, ErrCanceled) {
		p.t.settle(taskCanceled, nil, ErrCanceled)
		return
	}
	p.t.settle(taskFailed, nil, err)
}

// IsCanceled reports whether all consumers abandoned the result. A
// long-running producer should poll this and stop early.
func (p Promise[T]) IsCanceled() bool {
	return p.t.isCanceled()
}

// OnCanceled registers fn to run when the promise is canceled. If it is
// already canceled, fn runs immediately.
func (p Promise[T]) OnCanceled(fn func()) {
	p.t.onCanceled(fn)
}

// Future is a single-consumer handle to an asynchronous result.
//
// The zero Future is invalid. A Future owns one reference to the shared
// result: Cancel (or converting via Share and canceling every shared
// handle) releases it, and the producer is only canceled once no handle
// remains.
type Future[T any] struct {
	h *futureHandle
}

// MakeFinishedFuture creates a future that already carries v.
func MakeFinishedFuture[T any](v T) Future[T] {
	t := newTask()
	t.settle(taskFinished, v, nil)
	return Future[T]{h: newHandle(t)}
}

// MakeFailedFuture creates a future that already carries err.
func MakeFailedFuture[T any](err error) Future[T] {
	t := newTask()
	t.settle(taskFailed, nil, err)
	return Future[T]{h: newHandle(t)}
}

// IsValid reports whether the future is attached to a result.
func (f Future[T]) IsValid() bool { return f.h != nil }

// IsFinished reports whether the result is available (value, error or
// cancellation).
func (f Future[T]) IsFinished() bool { return f.h.t.isSettled() }

// IsCanceled reports whether the result was canceled.
func (f Future[T]) IsCanceled() bool { return f.h.t.isCanceled() }

// Cancel releases this handle's claim on the result. If it was the last
// handle and the producer has not finished, the operation is canceled.
// Cancel is idempotent.
func (f Future[T]) Cancel() {
	f.h.release()
}

// Result blocks until the result is available and returns it. A canceled
// future yields ErrCanceled.
func (f Future[T]) Result() (T, error) {
	state, v, err := f.h.t.wait()
	switch state {
	case taskFinished:
		return v.(T), nil
	case taskCanceled:
		var zero T
		return zero, ErrCanceled
	default:
		var zero T
		return zero, err
	}
}

// Share converts the future into a shared future. The receiver must not
// be used afterwards; its reference moves to the returned handle.
func (f Future[T]) Share() SharedFuture[T] {
	return SharedFuture[T]{h: f.h}
}

// SharedFuture is a multi-consumer handle to an asynchronous result.
// Clone hands out additional independent handles; canceling one handle
// never disturbs the others, and the producer is canceled only when the
// last live handle across all clones is released.
type SharedFuture[T any] struct {
	h *futureHandle
}

// MakeFinishedSharedFuture creates a shared future that already carries v.
func MakeFinishedSharedFuture[T any](v T) SharedFuture[T] {
	return MakeFinishedFuture(v).Share()
}

// MakeFailedSharedFuture creates a shared future that already carries err.
func MakeFailedSharedFuture[T any](err error) SharedFuture[T] {
	return MakeFailedFuture[T](err).Share()
}

// IsValid reports whether the shared future is attached to a result.
func (f SharedFuture[T]) IsValid() bool { return f.h != nil }

// Clone returns an independent handle to the same result.
func (f SharedFuture[T]) Clone() SharedFuture[T] {
	return SharedFuture[T]{h: newHandle(f.h.t)}
}

// IsFinished reports whether the result is available.
func (f SharedFuture[T]) IsFinished() bool { return f.h.t.isSettled() }

// IsCanceled reports whether the result was canceled.
func (f SharedFuture[T]) IsCanceled() bool { return f.h.t.isCanceled() }

// Cancel releases this handle. Idempotent; other handles keep the
// operation alive.
func (f SharedFuture[T]) Cancel() {
	f.h.release()
}

// Result blocks until the result is available and returns it.
func (f SharedFuture[T]) Result() (T, error) {
	state, v, err := f.h.t.wait()
	switch state {
	case taskFinished:
		return v.(T), nil
	case taskCanceled:
		var zero T
		return zero, ErrCanceled
	default:
		var zero T
		return zero, err
	}
}

// WhenFinished schedules fn on ex once the result settles. fn receives
// the value and error exactly as Result would return them. The callback
// fires for cancellations too, with ErrCanceled.
func (f SharedFuture[T]) WhenFinished(ex Executor, fn func(T, error)) {
	t := f.h.t
	t.addContinuation(ex, func() {
		state, v, err := t.snapshot()
		switch state {
		case taskFinished:
			fn(v.(T), nil)
		case taskCanceled:
			var zero T
			fn(zero, ErrCanceled)
		default:
			var zero T
			fn(zero, err)
		}
	})
}

// Then chains a transformation onto f. fn runs on ex once f finishes
// successfully; failure and cancellation propagate to the returned
// future without invoking fn. Canceling the returned future releases the
// chain's handle on f.
func Then[T, U any](f Future[T], ex Executor, fn func(T) (U, error)) Future[U] {
	p := NewPromise[U]()
	upstream := f.h
	p.t.onCanceled(upstream.release)
	upstream.t.addContinuation(ex, func() {
		state, v, err := upstream.t.snapshot()
		switch state {
		case taskFinished:
			u, err := fn(v.(T))
			if err != nil {
				p.SetFailed(err)
			} else {
				p.SetResult(u)
			}
		case taskCanceled:
			p.t.settle(taskCanceled, nil, ErrCanceled)
		default:
			p.SetFailed(err)
		}
		upstream.release()
	})
	return p.Future()
}

// ThenCompose chains an asynchronous continuation onto f. fn runs on ex
// once f settles, including on failure and cancellation, and returns the
// future whose outcome becomes the chain's outcome. Canceling the
// returned future cancels whichever stage is currently pending.
func ThenCompose[T, U any](f Future[T], ex Executor, fn func(T, error) Future[U]) Future[U] {
	p := NewPromise[U]()
	upstream := f.h
	p.t.onCanceled(upstream.release)
	upstream.t.addContinuation(ex, func() {
		state, v, err := upstream.t.snapshot()
		var in T
		switch state {
		case taskFinished:
			in = v.(T)
		case taskCanceled:
			err = ErrCanceled
		}
		next := fn(in, err)
		upstream.release()
		p.t.onCanceled(next.h.release)
		next.h.t.addContinuation(nil, func() {
			nstate, nv, nerr := next.h.t.snapshot()
			switch nstate {
			case taskFinished:
				p.SetResult(nv.(U))
			case taskCanceled:
				p.t.settle(taskCanceled, nil, ErrCanceled)
			default:
				p.SetFailed(nerr)
			}
			next.h.release()
		})
	})
	return p.Future()
}
