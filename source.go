package flowtime

// StaticSource is the trivial head of a pipeline chain: it serves a
// fixed payload with infinite validity. Evaluation resolves immediately
// and never fails.
type StaticSource struct {
	NodeBase

	data *DataCollection
}

// NewStaticSource creates a source serving data and adds it to ctx.
//
// Must run on the context's executor.
func NewStaticSource(ctx *PipelineContext, data *DataCollection) *StaticSource {
	s := &StaticSource{data: data}
	ctx.AddNode(s)
	return s
}

// Data returns the served payload.
func (s *StaticSource) Data() *DataCollection { return s.data }

// SetData replaces the served payload and notifies dependents that
// everything downstream is stale.
func (s *StaticSource) SetData(data *DataCollection) {
	s.data = data
	s.NotifyDependents(ChangeEvent{Kind: EventTargetChanged, Interval: EmptyInterval()})
}

// Evaluate resolves immediately with the fixed payload, valid for all
// times.
func (s *StaticSource) Evaluate(req EvaluationRequest) SharedFuture[PipelineFlowState] {
	state := NewFlowState(s.data, PipelineStatus{Type: StatusSuccess}, InfiniteInterval())
	return MakeFinishedSharedFuture(state)
}

// EvaluatePreliminary returns the fixed payload; it is always available.
func (s *StaticSource) EvaluatePreliminary(t TimePoint) (PipelineFlowState, bool) {
	return NewFlowState(s.data, PipelineStatus{Type: StatusSuccess}, InfiniteInterval()), true
}
