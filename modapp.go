package flowtime

import (
	"fmt"
)

// ModifierApplication binds one modifier into one pipeline position. It
// evaluates by composing the upstream node's result with the modifier's
// computation, caches the outcome, and owns the invalidation rules that
// react to changes of its input and its modifier.
type ModifierApplication struct {
	CachingPipelineObject

	input    NodeHandle
	modifier Modifier

	unsubInput    func()
	unsubModifier func()
}

// NewModifierApplication creates an application node on top of input,
// adds it to ctx and subscribes it to its input node and modifier.
// modifier may be nil, in which case the node passes its input through.
//
// Must run on the context's executor.
func NewModifierApplication(ctx *PipelineContext, input NodeHandle, modifier Modifier) *ModifierApplication {
	app := &ModifierApplication{input: input, modifier: modifier}
	app.initCaching(app)
	ctx.AddNode(app)

	if node := ctx.Node(input); node != nil {
		app.unsubInput = node.Events().Subscribe(app.inputEvent)
	}
	if modifier != nil {
		app.unsubModifier = modifier.Events().Subscribe(app.modifierEvent)
	}
	return app
}

// Input returns the handle of the upstream node.
func (app *ModifierApplication) Input() NodeHandle { return app.input }

// Modifier returns the bound modifier, which may be nil.
func (app *ModifierApplication) Modifier() Modifier { return app.modifier }

// SetInput rewires the application onto a different upstream node. The
// cached results are dropped unconditionally.
func (app *ModifierApplication) SetInput(input NodeHandle) {
	if app.unsubInput != nil {
		app.unsubInput()
		app.unsubInput = nil
	}
	app.input = input
	if app.ctx != nil {
		if node := app.ctx.Node(input); node != nil {
			app.unsubInput = node.Events().Subscribe(app.inputEvent)
		}
	}
	app.dropCache()
	app.NotifyDependents(ChangeEvent{Kind: EventReferenceReplaced})
	app.NotifyDependents(ChangeEvent{Kind: EventTargetChanged, Interval: EmptyInterval()})
}

// SetModifier replaces the bound modifier. The cached results are
// dropped unconditionally.
func (app *ModifierApplication) SetModifier(modifier Modifier) {
	if app.unsubModifier != nil {
		app.unsubModifier()
		app.unsubModifier = nil
	}
	app.modifier = modifier
	if modifier != nil {
		app.unsubModifier = modifier.Events().Subscribe(app.modifierEvent)
	}
	app.dropCache()
	app.NotifyDependents(ChangeEvent{Kind: EventReferenceReplaced})
	app.NotifyDependents(ChangeEvent{Kind: EventTargetChanged, Interval: EmptyInterval()})
}

// PipelineSource walks the chain down to its head node.
func (app *ModifierApplication) PipelineSource() PipelineObject {
	if app.ctx == nil {
		return nil
	}
	node := app.ctx.Node(app.input)
	for {
		up, ok := node.(*ModifierApplication)
		if !ok {
			return node
		}
		node = up.ctx.Node(up.input)
	}
}

// dropCache clears both cache slots and any retained stale contents.
func (app *ModifierApplication) dropCache() {
	app.invalidateCache(false, EmptyInterval())
	app.cache.DiscardStaleContents()
}

// softInvalidate keeps the cached objects but narrows their validity to
// nothing, so the next evaluation recomputes while interactive consumers
// may keep displaying the stale contents.
func (app *ModifierApplication) softInvalidate() {
	app.invalidateCache(true, EmptyInterval())
}

// inputEvent reacts to change events from the upstream node.
func (app *ModifierApplication) inputEvent(ev ChangeEvent) {
	switch ev.Kind {
	case EventPreliminaryStateAvailable:
		if keeper, ok := app.modifier.(KeepResultsOnPreliminaryInputUpdates); ok && keeper.KeepResultsOnPreliminaryInputUpdates() {
			app.NotifyDependents(ev)
			return
		}
		app.dropCache()
		app.NotifyDependents(ev)

	case EventTargetChanged:
		app.softInvalidate()
		app.NotifyDependents(ev)

	case EventAnimationFramesChanged, EventPipelineChanged:
		app.NotifyDependents(ev)

	default:
		// Not an invalidation trigger; forward unchanged.
		app.NotifyDependents(ev)
	}
}

// modifierEvent reacts to change events from the bound modifier.
func (app *ModifierApplication) modifierEvent(ev ChangeEvent) {
	switch ev.Kind {
	case EventTargetEnabledOrDisabled:
		app.dropCache()
		app.NotifyDependents(ChangeEvent{Kind: EventTargetChanged, Interval: EmptyInterval()})

	case EventParameterChanged:
		if filter, ok := app.modifier.(ParameterFilter); ok && !filter.ParameterAffectsResult(ev.Parameter) {
			return
		}
		app.softInvalidate()
		app.NotifyDependents(ChangeEvent{Kind: EventTargetChanged, Interval: EmptyInterval()})

	case EventReferenceReplaced:
		app.dropCache()
		app.NotifyDependents(ChangeEvent{Kind: EventTargetChanged, Interval: EmptyInterval()})

	case EventTargetChanged:
		app.softInvalidate()
		app.NotifyDependents(ev)

	default:
		app.NotifyDependents(ev)
	}
}

// evaluateInternal computes one result by evaluating the upstream node
// and feeding its state through the modifier.
func (app *ModifierApplication) evaluateInternal(req EvaluationRequest) Future[PipelineFlowState] {
	if app.ctx == nil {
		return MakeFailedFuture[PipelineFlowState](fmt.Errorf("modifier application not attached to a context"))
	}
	upstream := app.ctx.Node(app.input)
	if upstream == nil {
		return MakeFailedFuture[PipelineFlowState](fmt.Errorf("modifier application has no input node"))
	}

	inputFuture := upstream.Evaluate(req)
	ex := app.ctx.Executor()

	p := NewPromise[PipelineFlowState]()
	p.OnCanceled(inputFuture.Cancel)
	inputFuture.WhenFinished(ex, func(input PipelineFlowState, err error) {
		defer inputFuture.Cancel()
		switch {
		case err == ErrCanceled:
			p.SetFailed(ErrCanceled)
		case err != nil:
			// Upstream errors arrive as error states, not bare errors,
			// so this path means infrastructure failure.
			p.SetFailed(NewEvaluationError(app.handle, req.ID(), err))
		case input.Status().IsError() && req.BreakOnError():
			p.SetResult(input)
		default:
			app.applyModifier(req, input, p)
		}
	})
	return p.Future()
}

// applyModifier runs the modifier on the input state and settles p with
// the outcome. Modifier failures and panics become cached error states
// rather than failed futures.
func (app *ModifierApplication) applyModifier(req EvaluationRequest, input PipelineFlowState, p Promise[PipelineFlowState]) {
	if app.modifier == nil || !app.modifier.Enabled() {
		p.SetResult(input)
		return
	}

	modFuture, panicked := app.invokeModifier(req, input)
	if panicked != nil {
		p.SetResult(app.errorResult(input, panicked))
		return
	}

	p.OnCanceled(modFuture.Cancel)
	modFuture.WhenFinished(app.ctx.Executor(), func(output PipelineFlowState, err error) {
		defer modFuture.Cancel()
		switch {
		case err == ErrCanceled:
			p.SetFailed(ErrCanceled)
		case err != nil:
			p.SetResult(app.errorResult(input, err))
		default:
			output.IntersectValidity(input.Validity())
			if vm, ok := app.modifier.(ValidityModifier); ok {
				output.IntersectValidity(vm.ModifierValidity(req.Time()))
			}
			p.SetResult(output)
		}
	})
}

// invokeModifier calls the modifier's Evaluate, converting a panic into
// an error instead of unwinding the executor.
func (app *ModifierApplication) invokeModifier(req EvaluationRequest, input PipelineFlowState) (f SharedFuture[PipelineFlowState], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewEvaluationError(app.handle, req.ID(), fmt.Errorf("modifier panic: %v", r))
		}
	}()
	f = app.modifier.Evaluate(req, app, input).Share()
	return f, nil
}

// errorResult converts a modifier failure into a cacheable error state
// that keeps the input's validity, so repeated requests stay cheap until
// something invalidates the cache.
func (app *ModifierApplication) errorResult(input PipelineFlowState, err error) PipelineFlowState {
	state := input.Copy()
	state.SetStatus(StatusFromError(err))
	if app.ctx != nil {
		logger := app.ctx.Logger()
		logger.Warn().
			Stringer("node", app.handle).
			Err(err).
			Msg("modifier evaluation failed")
	}
	return state
}

// EvaluatePreliminary returns this node's cached or stale state, falling
// back to transforming the upstream node's preliminary state when the
// modifier supports cheap synchronous application.
func (app *ModifierApplication) EvaluatePreliminary(t TimePoint) (PipelineFlowState, bool) {
	if state, ok := app.CachingPipelineObject.EvaluatePreliminary(t); ok {
		return state, true
	}
	if app.ctx == nil {
		return PipelineFlowState{}, false
	}
	upstream := app.ctx.Node(app.input)
	if upstream == nil {
		return PipelineFlowState{}, false
	}
	input, ok := upstream.EvaluatePreliminary(t)
	if !ok {
		return PipelineFlowState{}, false
	}
	if app.modifier == nil || !app.modifier.Enabled() {
		return input, true
	}
	if pe, ok := app.modifier.(PreliminaryEvaluator); ok {
		return pe.EvaluatePreliminary(t, app, input), true
	}
	return PipelineFlowState{}, false
}

// SourceFrames forwards to the upstream node.
func (app *ModifierApplication) SourceFrames() int {
	if up := app.upstream(); up != nil {
		return up.SourceFrames()
	}
	return app.NodeBase.SourceFrames()
}

// FrameTime forwards to the upstream node.
func (app *ModifierApplication) FrameTime(frame int) TimePoint {
	if up := app.upstream(); up != nil {
		return up.FrameTime(frame)
	}
	return app.NodeBase.FrameTime(frame)
}

// FrameForEvalTime forwards to the upstream node.
func (app *ModifierApplication) FrameForEvalTime(t TimePoint) int {
	if up := app.upstream(); up != nil {
		return up.FrameForEvalTime(t)
	}
	return app.NodeBase.FrameForEvalTime(t)
}

func (app *ModifierApplication) upstream() PipelineObject {
	if app.ctx == nil {
		return nil
	}
	return app.ctx.Node(app.input)
}

func (app *ModifierApplication) detach() {
	if app.unsubInput != nil {
		app.unsubInput()
		app.unsubInput = nil
	}
	if app.unsubModifier != nil {
		app.unsubModifier()
		app.unsubModifier = nil
	}
	app.NodeBase.detach()
}
