package flowtime

// PipelineObject is a node in a pipeline chain: something that can
// produce a time-dependent PipelineFlowState on demand. Data sources sit
// at the head of a chain; modifier applications stack on top of them.
//
// Evaluation methods must be called on the owning context's executor.
type PipelineObject interface {
	// Evaluate requests the node's output at the request's time. The
	// returned future settles with a state whose validity interval
	// contains that time, or with an error.
	Evaluate(req EvaluationRequest) SharedFuture[PipelineFlowState]

	// EvaluatePreliminary returns a cheap, possibly stale result
	// without launching a computation. The second return value is false
	// when nothing usable is available.
	EvaluatePreliminary(t TimePoint) (PipelineFlowState, bool)

	// Events returns the node's change event dispatcher.
	Events() *EventDispatcher

	// Handle returns the node's arena handle, or the null handle before
	// the node is added to a context.
	Handle() NodeHandle

	// Status returns the node's current displayed status.
	Status() PipelineStatus

	// SourceFrames returns the number of animation frames the chain
	// below this node provides.
	SourceFrames() int

	// FrameTime maps a source frame number to its animation time.
	FrameTime(frame int) TimePoint

	// FrameForEvalTime maps an animation time to the source frame that
	// an evaluation at that time will use.
	FrameForEvalTime(t TimePoint) int

	attach(ctx *PipelineContext, h NodeHandle)
	detach()
}

// NodeBase carries the state common to all pipeline nodes: the owning
// context, the arena handle, the event dispatcher and the displayed
// status. Concrete nodes embed it.
type NodeBase struct {
	ctx        *PipelineContext
	handle     NodeHandle
	dispatcher EventDispatcher
	status     PipelineStatus
}

// Context returns the owning pipeline context, or nil before attachment.
func (n *NodeBase) Context() *PipelineContext { return n.ctx }

// Events returns the node's change event dispatcher.
func (n *NodeBase) Events() *EventDispatcher { return &n.dispatcher }

// Handle returns the node's arena handle.
func (n *NodeBase) Handle() NodeHandle { return n.handle }

// Status returns the node's displayed status.
func (n *NodeBase) Status() PipelineStatus { return n.status }

// SetStatus updates the displayed status, firing
// EventObjectStatusChanged when it actually changes.
func (n *NodeBase) SetStatus(status PipelineStatus) {
	if n.status == status {
		return
	}
	n.status = status
	n.NotifyDependents(ChangeEvent{Kind: EventObjectStatusChanged})
}

// NotifyDependents fires ev to the node's subscribers and forwards it to
// the context's extensions.
func (n *NodeBase) NotifyDependents(ev ChangeEvent) {
	if n.ctx != nil {
		n.ctx.observeEvent(n.handle, ev)
	}
	n.dispatcher.Notify(ev)
}

// SourceFrames returns 1; nodes backed by an animated source override it.
func (n *NodeBase) SourceFrames() int { return 1 }

// FrameTime maps a frame number to animation time at the default frame
// spacing.
func (n *NodeBase) FrameTime(frame int) TimePoint { return TimeForFrame(frame) }

// FrameForEvalTime maps an animation time to its frame at the default
// frame spacing.
func (n *NodeBase) FrameForEvalTime(t TimePoint) int { return FrameForTime(t) }

func (n *NodeBase) attach(ctx *PipelineContext, h NodeHandle) {
	n.ctx = ctx
	n.handle = h
}

func (n *NodeBase) detach() {
	n.ctx = nil
	n.handle = NullHandle
}
