package flowtime

import (
	"errors"
	"testing"
)

// mockModifier is a scriptable modifier for exercising the invalidation
// rules and evaluation composition.
type mockModifier struct {
	ModifierBase

	calls           int
	fail            error
	panicValue      any
	keepPreliminary bool
	noEffectParams  map[string]bool
	validity        *TimeInterval
	transform       func(input PipelineFlowState) PipelineFlowState
}

func (m *mockModifier) Evaluate(req EvaluationRequest, app *ModifierApplication, input PipelineFlowState) Future[PipelineFlowState] {
	m.calls++
	if m.panicValue != nil {
		panic(m.panicValue)
	}
	if m.fail != nil {
		return MakeFailedFuture[PipelineFlowState](m.fail)
	}
	out := input.Copy()
	if m.transform != nil {
		out = m.transform(input)
	}
	return MakeFinishedFuture(out)
}

func (m *mockModifier) KeepResultsOnPreliminaryInputUpdates() bool { return m.keepPreliminary }

func (m *mockModifier) ParameterAffectsResult(name string) bool { return !m.noEffectParams[name] }

func (m *mockModifier) ModifierValidity(t TimePoint) TimeInterval {
	if m.validity != nil {
		return *m.validity
	}
	return InfiniteInterval()
}

// preliminaryModifier additionally supports cheap synchronous
// application to a preliminary input state.
type preliminaryModifier struct {
	mockModifier

	prelimCalls int
}

func (m *preliminaryModifier) EvaluatePreliminary(t TimePoint, app *ModifierApplication, input PipelineFlowState) PipelineFlowState {
	m.prelimCalls++
	return NewFlowState(NewDataCollection(&testObject{Value: 99}), input.Status(), input.Validity())
}

// buildChain creates source -> app(mod) on an inline-executor context.
func buildChain(mod Modifier) (*PipelineContext, *StaticSource, *ModifierApplication) {
	ctx := inlineContext()
	source := NewStaticSource(ctx, NewDataCollection(&testObject{Value: 1}))
	app := NewModifierApplication(ctx, source.Handle(), mod)
	return ctx, source, app
}

func mustEvaluate(t *testing.T, app *ModifierApplication, tp TimePoint) PipelineFlowState {
	t.Helper()
	f := app.Evaluate(evalAt(tp))
	defer f.Cancel()
	state, err := f.Result()
	if err != nil {
		t.Fatalf("evaluation at %d failed: %v", tp, err)
	}
	return state
}

// TestModApp_Passthrough tests evaluation without a modifier
func TestModApp_Passthrough(t *testing.T) {
	_, source, app := buildChain(nil)
	state := mustEvaluate(t, app, 5)
	if state.Data() != source.Data() {
		t.Error("nil modifier should pass the source payload through")
	}
	if !state.Validity().IsInfinite() {
		t.Errorf("validity = %v, want infinite", state.Validity())
	}
}

// TestModApp_DisabledPassthrough tests that a disabled modifier is skipped
func TestModApp_DisabledPassthrough(t *testing.T) {
	mod := &mockModifier{}
	mod.SetEnabled(false)
	_, source, app := buildChain(mod)

	state := mustEvaluate(t, app, 5)
	if mod.calls != 0 {
		t.Error("disabled modifier must not be invoked")
	}
	if state.Data() != source.Data() {
		t.Error("disabled modifier should pass the input through")
	}
}

// TestModApp_ErrorCached tests that a modifier failure becomes a cached
// error state served without re-invoking the modifier
func TestModApp_ErrorCached(t *testing.T) {
	mod := &mockModifier{fail: errors.New("stage exploded")}
	_, _, app := buildChain(mod)

	state := mustEvaluate(t, app, 5)
	if !state.Status().IsError() {
		t.Fatalf("status = %v, want error", state.Status())
	}
	if state.Status().Message == "" {
		t.Error("error status should carry the failure message")
	}
	if mod.calls != 1 {
		t.Fatalf("modifier ran %d times", mod.calls)
	}

	second := mustEvaluate(t, app, 5)
	if !second.Status().IsError() {
		t.Error("second evaluation should serve the cached error")
	}
	if mod.calls != 1 {
		t.Errorf("cached error should not re-invoke the modifier, got %d calls", mod.calls)
	}
}

// TestModApp_ChangedEventForcesRecompute tests recovery after an input
// change event
func TestModApp_ChangedEventForcesRecompute(t *testing.T) {
	mod := &mockModifier{fail: errors.New("stage exploded")}
	_, source, app := buildChain(mod)

	mustEvaluate(t, app, 5)
	if mod.calls != 1 {
		t.Fatalf("modifier ran %d times", mod.calls)
	}

	mod.fail = nil
	source.SetData(NewDataCollection(&testObject{Value: 2}))

	state := mustEvaluate(t, app, 5)
	if mod.calls != 2 {
		t.Errorf("changed input should re-invoke the modifier, got %d calls", mod.calls)
	}
	if state.Status().IsError() {
		t.Error("recomputed state should be healthy")
	}
}

// TestModApp_PanicBecomesErrorState tests panic conversion
func TestModApp_PanicBecomesErrorState(t *testing.T) {
	mod := &mockModifier{panicValue: "kaboom"}
	_, _, app := buildChain(mod)

	state := mustEvaluate(t, app, 5)
	if !state.Status().IsError() {
		t.Fatalf("panicking modifier should produce an error state, got %v", state.Status())
	}
}

// TestModApp_EnabledDisabledDropsCache tests the hard invalidation row
func TestModApp_EnabledDisabledDropsCache(t *testing.T) {
	mod := &mockModifier{}
	_, _, app := buildChain(mod)
	mustEvaluate(t, app, 5)
	if !app.Cache().Contains(5) {
		t.Fatal("cache should be populated")
	}

	mod.SetEnabled(false)

	if app.Cache().Contains(5) {
		t.Error("enabling/disabling must drop the cached result")
	}
	if _, ok := app.Cache().StaleContents(); ok {
		t.Error("hard drop must not retain stale contents")
	}
}

// TestModApp_InputChangedSoftInvalidates tests the soft invalidation row
func TestModApp_InputChangedSoftInvalidates(t *testing.T) {
	mod := &mockModifier{}
	_, source, app := buildChain(mod)
	mustEvaluate(t, app, 5)

	source.SetData(NewDataCollection(&testObject{Value: 3}))

	if app.Cache().Contains(5) {
		t.Error("input change must invalidate the cached result")
	}
	if _, ok := app.Cache().StaleContents(); !ok {
		t.Error("soft invalidation should retain the stale contents")
	}
}

// TestModApp_PreliminaryDropsUnlessOptedOut tests the preliminary row
func TestModApp_PreliminaryDropsUnlessOptedOut(t *testing.T) {
	mod := &mockModifier{}
	ctx, source, app := buildChain(mod)
	mustEvaluate(t, app, 5)

	source.NotifyDependents(ChangeEvent{Kind: EventPreliminaryStateAvailable})
	if app.Cache().Contains(5) {
		t.Error("preliminary input update should drop the cache by default")
	}

	// With the opt-out, the cache survives.
	keeper := &mockModifier{keepPreliminary: true}
	source2 := NewStaticSource(ctx, NewDataCollection(&testObject{Value: 1}))
	app2 := NewModifierApplication(ctx, source2.Handle(), keeper)
	mustEvaluate(t, app2, 5)

	source2.NotifyDependents(ChangeEvent{Kind: EventPreliminaryStateAvailable})
	if !app2.Cache().Contains(5) {
		t.Error("opted-out modifier should keep results across preliminary updates")
	}
}

// TestModApp_PreliminaryFallsBackToModifier tests the synchronous
// fallback path when this node's cache has nothing to serve
func TestModApp_PreliminaryFallsBackToModifier(t *testing.T) {
	mod := &preliminaryModifier{}
	_, _, app := buildChain(mod)

	// Nothing evaluated yet: the upstream preliminary state is fed
	// through the modifier's synchronous application.
	state, ok := app.EvaluatePreliminary(5)
	if !ok {
		t.Fatal("preliminary state should be available through the fallback")
	}
	if mod.prelimCalls != 1 {
		t.Fatalf("synchronous application ran %d times, want 1", mod.prelimCalls)
	}
	objs := state.Data().Objects()
	if len(objs) != 1 || objs[0].(*testObject).Value != 99 {
		t.Errorf("fallback should return the transformed state, got %v", objs)
	}

	// Once a full result is cached, it is served directly.
	mustEvaluate(t, app, 5)
	if _, ok := app.EvaluatePreliminary(5); !ok {
		t.Fatal("cached state should be available")
	}
	if mod.prelimCalls != 1 {
		t.Errorf("cache hit must skip the synchronous application, got %d calls", mod.prelimCalls)
	}
}

// TestModApp_PreliminaryUnavailable tests the cases where no preliminary
// state can be produced
func TestModApp_PreliminaryUnavailable(t *testing.T) {
	// A modifier without synchronous application support blocks the
	// fallback even though the upstream state is available.
	_, _, app := buildChain(&mockModifier{})
	if _, ok := app.EvaluatePreliminary(5); ok {
		t.Error("modifier without synchronous application should yield nothing")
	}

	// An upstream node with an empty cache has nothing to fall back on.
	ctx := inlineContext()
	counting := newCountingNode(ctx, func(req EvaluationRequest) Future[PipelineFlowState] {
		return MakeFinishedFuture(successState(NewTimeInterval(0, 100)))
	})
	mod := &preliminaryModifier{}
	app2 := NewModifierApplication(ctx, counting.Handle(), mod)
	if _, ok := app2.EvaluatePreliminary(5); ok {
		t.Error("empty upstream cache should yield nothing")
	}
	if mod.prelimCalls != 0 {
		t.Errorf("modifier must not run without an input state, got %d calls", mod.prelimCalls)
	}
}

// TestModApp_PreliminaryDisabledPassthrough tests that a disabled
// modifier passes the upstream preliminary state through unchanged
func TestModApp_PreliminaryDisabledPassthrough(t *testing.T) {
	mod := &preliminaryModifier{}
	mod.SetEnabled(false)
	_, source, app := buildChain(mod)

	state, ok := app.EvaluatePreliminary(5)
	if !ok {
		t.Fatal("disabled modifier should pass the upstream state through")
	}
	if state.Data() != source.Data() {
		t.Error("passthrough should serve the upstream payload")
	}
	if mod.prelimCalls != 0 {
		t.Errorf("disabled modifier must not be applied, got %d calls", mod.prelimCalls)
	}
}

// TestModApp_ParameterChangedRespectsFilter tests the parameter row
func TestModApp_ParameterChangedRespectsFilter(t *testing.T) {
	mod := &mockModifier{noEffectParams: map[string]bool{"displayColor": true}}
	_, _, app := buildChain(mod)
	mustEvaluate(t, app, 5)

	mod.NotifyParameterChanged("displayColor")
	if !app.Cache().Contains(5) {
		t.Error("a declared no-effect parameter must leave the cache alone")
	}

	mod.NotifyParameterChanged("radius")
	if app.Cache().Contains(5) {
		t.Error("an effective parameter change must invalidate the cache")
	}
	if _, ok := app.Cache().StaleContents(); !ok {
		t.Error("parameter change is a soft invalidation")
	}
}

// TestModApp_SetModifierDropsCache tests the reference-replaced row
func TestModApp_SetModifierDropsCache(t *testing.T) {
	mod := &mockModifier{}
	_, _, app := buildChain(mod)
	mustEvaluate(t, app, 5)

	replacement := &mockModifier{}
	app.SetModifier(replacement)

	if app.Cache().Contains(5) {
		t.Error("replacing the modifier must drop the cache")
	}
	if _, ok := app.Cache().StaleContents(); ok {
		t.Error("reference replacement is a hard drop")
	}

	mustEvaluate(t, app, 5)
	if replacement.calls != 1 || mod.calls != 1 {
		t.Errorf("next evaluation should use the replacement (old=%d new=%d)", mod.calls, replacement.calls)
	}

	// The old modifier's events no longer reach the application.
	mod.NotifyParameterChanged("radius")
	if !app.Cache().Contains(5) {
		t.Error("events from the unbound modifier must be ignored")
	}
}

// TestModApp_UnrecognizedEventForwarded tests the default table row
func TestModApp_UnrecognizedEventForwarded(t *testing.T) {
	mod := &mockModifier{}
	ctx, source, app := buildChain(mod)
	mustEvaluate(t, app, 5)

	var received []EventKind
	app.Events().Subscribe(func(ev ChangeEvent) {
		received = append(received, ev.Kind)
	})

	source.NotifyDependents(ChangeEvent{Kind: EventAnimationFramesChanged})

	if app.Cache().Contains(5) != true {
		t.Error("an unrecognized event must not touch the cache")
	}
	if len(received) != 1 || received[0] != EventAnimationFramesChanged {
		t.Errorf("event should be forwarded downstream, got %v", received)
	}
	_ = ctx
}

// TestModApp_ValidityIntersection tests that the output validity is the
// intersection of input and modifier validity
func TestModApp_ValidityIntersection(t *testing.T) {
	iv := NewTimeInterval(0, 50)
	mod := &mockModifier{validity: &iv}
	_, _, app := buildChain(mod)

	state := mustEvaluate(t, app, 5)
	if state.Validity() != iv {
		t.Errorf("validity = %v, want %v (infinite input clipped by modifier)", state.Validity(), iv)
	}
}

// TestModApp_BreakOnError tests short-circuiting at a failing stage
func TestModApp_BreakOnError(t *testing.T) {
	ctx := inlineContext()
	source := NewStaticSource(ctx, NewDataCollection(&testObject{Value: 1}))
	failing := &mockModifier{fail: errors.New("upstream exploded")}
	app1 := NewModifierApplication(ctx, source.Handle(), failing)
	downstream := &mockModifier{}
	app2 := NewModifierApplication(ctx, app1.Handle(), downstream)

	req := NewEvaluationRequest(nil, 5, WithBreakOnError())
	f := app2.Evaluate(req)
	state, err := f.Result()
	f.Cancel()
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if !state.Status().IsError() {
		t.Fatal("error status should flow through")
	}
	if downstream.calls != 0 {
		t.Error("break-on-error must skip stages after the failure")
	}

	// Without the option, downstream stages still run on the error state.
	app1.Cache().Invalidate(false, EmptyInterval())
	app2.Cache().Invalidate(false, EmptyInterval())
	state2 := mustEvaluate(t, app2, 5)
	if downstream.calls != 1 {
		t.Errorf("without break-on-error the downstream modifier runs, got %d calls", downstream.calls)
	}
	_ = state2
}

// TestModApp_PipelineSource tests chain traversal to the head
func TestModApp_PipelineSource(t *testing.T) {
	ctx := inlineContext()
	source := NewStaticSource(ctx, NewDataCollection())
	app1 := NewModifierApplication(ctx, source.Handle(), &mockModifier{})
	app2 := NewModifierApplication(ctx, app1.Handle(), &mockModifier{})

	if got := app2.PipelineSource(); got != PipelineObject(source) {
		t.Errorf("PipelineSource = %v, want the static source", got)
	}
}

// TestModApp_SharedUpstreamBranches tests that two downstream branches
// share the upstream node's cache
func TestModApp_SharedUpstreamBranches(t *testing.T) {
	ctx := inlineContext()
	counting := newCountingNode(ctx, func(req EvaluationRequest) Future[PipelineFlowState] {
		return MakeFinishedFuture(successState(NewTimeInterval(0, 100), &testObject{Value: 1}))
	})
	left := NewModifierApplication(ctx, counting.Handle(), &mockModifier{})
	right := NewModifierApplication(ctx, counting.Handle(), &mockModifier{})

	mustEvaluate(t, left, 5)
	mustEvaluate(t, right, 5)
	if counting.calls != 1 {
		t.Errorf("branches should share the upstream cache, got %d upstream computations", counting.calls)
	}
}
