package flowtime

// EventKind discriminates the change notifications that flow between
// pipeline nodes. Each kind carries a fixed, documented meaning; handlers
// switch on the kind instead of inspecting the sender.
type EventKind int

const (
	// EventTargetChanged signals that a node's output is stale for some
	// time range. The event's Interval says which range; an empty
	// interval means all times.
	EventTargetChanged EventKind = iota

	// EventTargetEnabledOrDisabled signals that a modifier was switched
	// on or off.
	EventTargetEnabledOrDisabled

	// EventPreliminaryStateAvailable signals that a node published an
	// early, possibly incomplete result for the current display time.
	EventPreliminaryStateAvailable

	// EventPipelineChanged signals a structural change to the chain a
	// node heads, such as a stage being inserted or removed.
	EventPipelineChanged

	// EventParameterChanged signals that a named modifier parameter was
	// edited. The event's Parameter carries the name.
	EventParameterChanged

	// EventReferenceReplaced signals that a node swapped one of its
	// upstream references for another object.
	EventReferenceReplaced

	// EventObjectStatusChanged signals that a node's displayed status
	// changed without its data output changing.
	EventObjectStatusChanged

	// EventAnimationFramesChanged signals that a source's set of
	// available frames changed.
	EventAnimationFramesChanged
)

// String returns the kind's name for log output.
func (k EventKind) String() string {
	switch k {
	case EventTargetChanged:
		return "TargetChanged"
	case EventTargetEnabledOrDisabled:
		return "TargetEnabledOrDisabled"
	case EventPreliminaryStateAvailable:
		return "PreliminaryStateAvailable"
	case EventPipelineChanged:
		return "PipelineChanged"
	case EventParameterChanged:
		return "ParameterChanged"
	case EventReferenceReplaced:
		return "ReferenceReplaced"
	case EventObjectStatusChanged:
		return "ObjectStatusChanged"
	case EventAnimationFramesChanged:
		return "AnimationFramesChanged"
	default:
		return "Unknown"
	}
}

// ChangeEvent is the notification payload delivered to subscribers.
// Only the fields relevant to the Kind are populated.
type ChangeEvent struct {
	Kind EventKind

	// Parameter names the edited parameter for EventParameterChanged.
	Parameter string

	// Interval is the affected time range for EventTargetChanged. An
	// empty interval means the entire timeline.
	Interval TimeInterval
}

// EventHandler receives change events from a node a subscriber is
// watching.
type EventHandler func(ChangeEvent)

// EventDispatcher is an explicit subscriber list. Nodes embed one and
// fire events through it; downstream nodes subscribe during attachment
// and unsubscribe when the link is broken.
//
// Dispatchers are confined to the pipeline context's executor: Subscribe,
// Unsubscribe and Notify must all run there, so no locking is needed.
type EventDispatcher struct {
	nextID   int
	handlers []subscription
}

type subscription struct {
	id int
	fn EventHandler
}

// Subscribe registers a handler and returns a function that removes it.
func (d *EventDispatcher) Subscribe(fn EventHandler) (unsubscribe func()) {
	d.nextID++
	id := d.nextID
	d.handlers = append(d.handlers, subscription{id: id, fn: fn})
	return func() {
		for i, s := range d.handlers {
			if s.id == id {
				d.handlers = append(d.handlers[:i], d.handlers[i+1:]...)
				return
			}
		}
	}
}

// Notify delivers ev to every current subscriber, in subscription order.
func (d *EventDispatcher) Notify(ev ChangeEvent) {
	// Copy so handlers may subscribe or unsubscribe during delivery.
	subs := make([]subscription, len(d.handlers))
	copy(subs, d.handlers)
	for _, s := range subs {
		s.fn(ev)
	}
}

// Len returns the current number of subscribers.
func (d *EventDispatcher) Len() int { return len(d.handlers) }
