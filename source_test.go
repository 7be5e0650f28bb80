package flowtime

import "testing"

// TestStaticSource_ImmediateResolve tests that evaluation resolves
// immediately with the fixed payload and infinite validity
func TestStaticSource_ImmediateResolve(t *testing.T) {
	ctx := inlineContext()
	obj := &testObject{Value: 1}
	source := NewStaticSource(ctx, NewDataCollection(obj))

	f := source.Evaluate(evalAt(1234))
	if !f.IsFinished() {
		t.Fatal("static source should resolve immediately")
	}
	state, err := f.Result()
	f.Cancel()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if state.Status().Type != StatusSuccess {
		t.Errorf("status = %v, want success", state.Status().Type)
	}
	if !state.Data().Contains(obj) {
		t.Error("payload should contain the source's object")
	}
	if !state.Validity().IsInfinite() {
		t.Errorf("validity = %v, want infinite", state.Validity())
	}
}

// TestStaticSource_SetDataNotifies tests the change notification
func TestStaticSource_SetDataNotifies(t *testing.T) {
	ctx := inlineContext()
	source := NewStaticSource(ctx, NewDataCollection())

	var got []ChangeEvent
	source.Events().Subscribe(func(ev ChangeEvent) { got = append(got, ev) })

	source.SetData(NewDataCollection(&testObject{Value: 2}))
	if len(got) != 1 || got[0].Kind != EventTargetChanged {
		t.Errorf("SetData should fire one TargetChanged event, got %v", got)
	}

	state, ok := source.EvaluatePreliminary(0)
	if !ok {
		t.Fatal("static source always has a preliminary state")
	}
	if state.Data().Len() != 1 {
		t.Error("preliminary state should serve the new payload")
	}
}
