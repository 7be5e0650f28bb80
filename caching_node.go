package flowtime

import "sync/atomic"

// internalEvaluator is the computation step a caching node wraps. The
// concrete node type supplies it; CachingPipelineObject owns the cache
// lookup, deduplication and result insertion around it.
type internalEvaluator interface {
	evaluateInternal(req EvaluationRequest) Future[PipelineFlowState]
}

// CachingPipelineObject implements the shared evaluation machinery of
// pipeline nodes: a result cache, deduplication of the one tracked
// in-flight evaluation, and insertion of settled results back into the
// cache on the context's executor.
//
// The node is Idle when no evaluation is tracked and Evaluating(t) while
// one is. A second request for the same time joins the in-flight
// computation; a request for a different time launches its own.
type CachingPipelineObject struct {
	NodeBase

	cache *PipelineCache
	impl  internalEvaluator

	inflight     SharedFuture[PipelineFlowState]
	inflightTime TimePoint
	hasInflight  bool

	evaluationsInProgress atomic.Int32
}

// initCaching wires the embedding node's computation step. Must be
// called by the concrete node's constructor.
func (o *CachingPipelineObject) initCaching(impl internalEvaluator) {
	o.cache = NewPipelineCache()
	o.impl = impl
}

// Cache exposes the node's pipeline cache.
func (o *CachingPipelineObject) Cache() *PipelineCache { return o.cache }

// Status returns Pending while an evaluation is in progress, otherwise
// the node's stored status.
func (o *CachingPipelineObject) Status() PipelineStatus {
	if o.evaluationsInProgress.Load() > 0 {
		return PipelineStatus{Type: StatusPending, Message: "evaluation in progress"}
	}
	return o.NodeBase.Status()
}

// IsEvaluating reports whether the node tracks an in-flight evaluation.
func (o *CachingPipelineObject) IsEvaluating() bool { return o.hasInflight }

// Evaluate requests the node's output at the request's time. It never
// blocks: the result comes back as a shared future that is already
// settled on a cache hit.
//
// Must run on the context's executor.
func (o *CachingPipelineObject) Evaluate(req EvaluationRequest) SharedFuture[PipelineFlowState] {
	t := req.Time()

	if o.cache.Contains(t) {
		return MakeFinishedSharedFuture(o.cache.At(t))
	}

	if o.hasInflight && o.inflightTime == t && !o.inflight.IsCanceled() {
		return o.inflight.Clone()
	}

	// A fresh round: whatever race the previous round guarded against
	// is over once we recompute from current input.
	o.cache.ResetValidityRestriction()

	op := &Operation{Kind: OpEvaluate, Node: o.handle, Request: req, Context: o.ctx}
	if o.ctx != nil {
		o.ctx.evaluateStart(op)
	}
	o.evaluationsInProgress.Add(1)

	shared := o.impl.evaluateInternal(req).Share()

	// The node keeps its own handle so consumer cancellations do not
	// tear down a computation the cache still wants.
	o.inflight = shared.Clone()
	o.inflightTime = t
	o.hasInflight = true

	tracked := o.inflight
	tracked.WhenFinished(o.executorOrInline(), func(state PipelineFlowState, err error) {
		o.evaluationsInProgress.Add(-1)
		o.finishEvaluation(op, tracked, t, state, err)
	})

	return shared
}

func (o *CachingPipelineObject) executorOrInline() Executor {
	if o.ctx != nil {
		return o.ctx.Executor()
	}
	return InlineExecutor{}
}

// finishEvaluation runs on the context's executor once the tracked
// computation settles. Canceled results are never cached.
func (o *CachingPipelineObject) finishEvaluation(op *Operation, tracked SharedFuture[PipelineFlowState], t TimePoint, state PipelineFlowState, err error) {
	if o.hasInflight && o.inflight == tracked {
		o.hasInflight = false
		o.inflight.Cancel()
		o.inflight = SharedFuture[PipelineFlowState]{}
	}

	if err == nil {
		displayTime := o.displayTime()
		o.cache.Insert(state, displayTime)
		o.SetStatus(state.Status())
		if t == displayTime {
			o.NotifyDependents(ChangeEvent{Kind: EventPreliminaryStateAvailable})
		}
	} else if err != ErrCanceled {
		o.SetStatus(StatusFromError(err))
	}

	if o.ctx != nil {
		o.ctx.evaluateEnd(op, state, err)
	}
}

func (o *CachingPipelineObject) displayTime() TimePoint {
	if o.ctx != nil {
		return o.ctx.DisplayTime()
	}
	return 0
}

// EvaluatePreliminary returns the cached state covering t, or the stale
// contents kept across the last invalidation. It launches nothing.
func (o *CachingPipelineObject) EvaluatePreliminary(t TimePoint) (PipelineFlowState, bool) {
	if o.cache.Contains(t) {
		return o.cache.At(t), true
	}
	if stale, ok := o.cache.StaleContents(); ok {
		return stale, true
	}
	return PipelineFlowState{}, false
}

// InvalidatePipelineCache narrows the cached results to keep, dropping
// payloads whose validity becomes empty. An in-flight evaluation whose
// time falls outside keep is no longer tracked for deduplication; the
// computation itself may still finish, but its result will be accepted
// only with validity narrowed to keep.
func (o *CachingPipelineObject) InvalidatePipelineCache(keep TimeInterval) {
	o.invalidateCache(false, keep)
}

func (o *CachingPipelineObject) invalidateCache(keepStale bool, keep TimeInterval) {
	o.cache.Invalidate(keepStale, keep)

	if o.evaluationsInProgress.Load() > 0 {
		// Guard against a late result computed from input that just
		// changed: whatever arrives next is only trusted within keep.
		o.cache.RestrictValidityOfNextInsertedState(keep)
	}

	if o.hasInflight && !keep.Contains(o.inflightTime) {
		o.hasInflight = false
		o.inflight.Cancel()
		o.inflight = SharedFuture[PipelineFlowState]{}
	}
}
