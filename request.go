package flowtime

import (
	"context"

	"github.com/google/uuid"
)

// EvaluationRequest describes one demand for a pipeline result: the
// animation time to evaluate at, whether upstream errors should abort
// the chain, and the context.Context governing the caller's patience.
//
// Requests are immutable values. The same request flows down the whole
// chain so every stage sees the same time and the same ID.
type EvaluationRequest struct {
	id           string
	time         TimePoint
	breakOnError bool
	ctx          context.Context
}

// RequestOption configures an EvaluationRequest.
type RequestOption func(*EvaluationRequest)

// WithBreakOnError makes the chain stop at the first failing stage
// instead of feeding the error state through downstream stages.
func WithBreakOnError() RequestOption {
	return func(r *EvaluationRequest) { r.breakOnError = true }
}

// NewEvaluationRequest creates a request for the given animation time.
// ctx may be nil, in which case context.Background is used.
func NewEvaluationRequest(ctx context.Context, t TimePoint, opts ...RequestOption) EvaluationRequest {
	if ctx == nil {
		ctx = context.Background()
	}
	r := EvaluationRequest{
		id:   uuid.NewString(),
		time: t,
		ctx:  ctx,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// ID returns the request's unique identifier, used to correlate log
// records across the stages of one evaluation.
func (r EvaluationRequest) ID() string { return r.id }

// Time returns the animation time the request asks for.
func (r EvaluationRequest) Time() TimePoint { return r.time }

// BreakOnError reports whether the chain should abort at the first
// failing stage.
func (r EvaluationRequest) BreakOnError() bool { return r.breakOnError }

// Context returns the caller's context.
func (r EvaluationRequest) Context() context.Context { return r.ctx }

// Canceled reports whether the caller's context was canceled.
func (r EvaluationRequest) Canceled() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

// At returns a copy of the request asking for a different time. The ID
// and options are preserved, so the copy still correlates with the
// original in logs.
func (r EvaluationRequest) At(t TimePoint) EvaluationRequest {
	r.time = t
	return r
}
