package flowtime

import "context"

// Accessor provides a convenient front door to one pipeline node. It
// marshals calls onto the context's executor, so it is safe to use from
// any goroutine, and offers a blocking Get for callers that do not want
// to deal with futures.
type Accessor struct {
	ctx    *PipelineContext
	handle NodeHandle
}

// Access creates an accessor for the node behind handle.
func Access(ctx *PipelineContext, handle NodeHandle) *Accessor {
	return &Accessor{ctx: ctx, handle: handle}
}

// Handle returns the accessed node's handle.
func (a *Accessor) Handle() NodeHandle { return a.handle }

// Evaluate requests the node's output at time t, dispatching the call
// onto the context's executor.
func (a *Accessor) Evaluate(ctx context.Context, t TimePoint, opts ...RequestOption) SharedFuture[PipelineFlowState] {
	req := NewEvaluationRequest(ctx, t, opts...)
	p := NewPromise[PipelineFlowState]()
	a.ctx.Submit(func() {
		node := a.ctx.Node(a.handle)
		if node == nil {
			p.SetFailed(NewEvaluationError(a.handle, req.ID(), ErrNodeRemoved))
			return
		}
		f := node.Evaluate(req)
		p.OnCanceled(f.Cancel)
		f.WhenFinished(nil, func(state PipelineFlowState, err error) {
			defer f.Cancel()
			if err != nil {
				p.SetFailed(err)
				return
			}
			p.SetResult(state)
		})
	})
	return p.Future().Share()
}

// Get evaluates at time t and blocks until the result arrives.
func (a *Accessor) Get(ctx context.Context, t TimePoint, opts ...RequestOption) (PipelineFlowState, error) {
	return a.Evaluate(ctx, t, opts...).Result()
}

// Peek returns the cached or stale state at t without launching a
// computation. It blocks only for the round trip to the executor.
func (a *Accessor) Peek(t TimePoint) (PipelineFlowState, bool) {
	type peekResult struct {
		state PipelineFlowState
		ok    bool
	}
	done := make(chan peekResult, 1)
	a.ctx.Submit(func() {
		node := a.ctx.Node(a.handle)
		if node == nil {
			done <- peekResult{}
			return
		}
		state, ok := node.EvaluatePreliminary(t)
		done <- peekResult{state: state, ok: ok}
	})
	r := <-done
	return r.state, r.ok
}

// Status returns the node's current status, or an error status when the
// node was removed.
func (a *Accessor) Status() PipelineStatus {
	done := make(chan PipelineStatus, 1)
	a.ctx.Submit(func() {
		node := a.ctx.Node(a.handle)
		if node == nil {
			done <- StatusFromError(ErrNodeRemoved)
			return
		}
		done <- node.Status()
	})
	return <-done
}
