package flowtime

// Modifier transforms the flow state produced by the upstream part of a
// pipeline chain. One modifier object can be bound into several chains;
// the per-position state lives in the ModifierApplication.
type Modifier interface {
	// Enabled reports whether the modifier currently participates in
	// evaluation. A disabled modifier's input passes through unchanged.
	Enabled() bool

	// Evaluate computes the modifier's output from the upstream input
	// state. Returning a failed future marks the pipeline result as an
	// error; panicking is treated the same way.
	Evaluate(req EvaluationRequest, app *ModifierApplication, input PipelineFlowState) Future[PipelineFlowState]

	// Events returns the modifier's change event dispatcher. The bound
	// applications subscribe to it.
	Events() *EventDispatcher
}

// PreliminaryEvaluator is implemented by modifiers that can transform a
// preliminary input state synchronously and cheaply.
type PreliminaryEvaluator interface {
	EvaluatePreliminary(t TimePoint, app *ModifierApplication, input PipelineFlowState) PipelineFlowState
}

// ValidityModifier is implemented by modifiers whose output is valid
// over a narrower interval than their input, for example time-dependent
// parameters.
type ValidityModifier interface {
	// ModifierValidity returns the interval around t over which the
	// modifier's own contribution stays constant.
	ModifierValidity(t TimePoint) TimeInterval
}

// KeepResultsOnPreliminaryInputUpdates is implemented by modifiers whose
// cached results should survive preliminary notifications from upstream,
// typically because they are expensive and insensitive to partial input.
type KeepResultsOnPreliminaryInputUpdates interface {
	KeepResultsOnPreliminaryInputUpdates() bool
}

// ParameterFilter is implemented by modifiers that can declare certain
// parameter edits as having no effect on their output, sparing the
// downstream caches.
type ParameterFilter interface {
	ParameterAffectsResult(name string) bool
}

// ModifierBase carries the enabled flag and event dispatcher common to
// modifier implementations. Concrete modifiers embed it and fire
// NotifyParameterChanged from their setters.
type ModifierBase struct {
	disabled   bool
	dispatcher EventDispatcher
}

// Enabled reports whether the modifier is switched on. The zero value
// is enabled.
func (m *ModifierBase) Enabled() bool { return !m.disabled }

// SetEnabled switches the modifier on or off, notifying the bound
// applications when the flag actually changes.
func (m *ModifierBase) SetEnabled(enabled bool) {
	if m.disabled == !enabled {
		return
	}
	m.disabled = !enabled
	m.dispatcher.Notify(ChangeEvent{Kind: EventTargetEnabledOrDisabled})
}

// Events returns the modifier's change event dispatcher.
func (m *ModifierBase) Events() *EventDispatcher { return &m.dispatcher }

// NotifyParameterChanged announces that the named parameter was edited.
// Concrete modifiers call it from their parameter setters.
func (m *ModifierBase) NotifyParameterChanged(name string) {
	m.dispatcher.Notify(ChangeEvent{Kind: EventParameterChanged, Parameter: name})
}

// NotifyChanged announces an unspecific change that invalidates the
// modifier's output everywhere.
func (m *ModifierBase) NotifyChanged() {
	m.dispatcher.Notify(ChangeEvent{Kind: EventTargetChanged, Interval: EmptyInterval()})
}
