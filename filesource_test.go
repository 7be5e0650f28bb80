package flowtime

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestFileSource_LoadsOnDemand tests lazy loading and caching
func TestFileSource_LoadsOnDemand(t *testing.T) {
	ctx := inlineContext()
	path := writeTempFile(t, "hello")

	loads := 0
	source, err := NewFileSource(ctx, path, func(req EvaluationRequest, p string, frame int) (*DataCollection, error) {
		loads++
		return NewDataCollection(&testObject{Value: frame}), nil
	})
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer source.Close()

	if loads != 0 {
		t.Error("construction must not load the file")
	}

	f := source.Evaluate(evalAt(5))
	state, err := f.Result()
	f.Cancel()
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}
	if !state.Validity().IsInfinite() {
		t.Errorf("single-frame source should be valid everywhere, got %v", state.Validity())
	}

	f2 := source.Evaluate(evalAt(99))
	f2.Cancel()
	if loads != 1 {
		t.Errorf("cached result should be reused, loads = %d", loads)
	}
}

// TestFileSource_ReloadInvalidates tests the change notification path
func TestFileSource_ReloadInvalidates(t *testing.T) {
	ctx := inlineContext()
	path := writeTempFile(t, "v1")

	loads := 0
	source, err := NewFileSource(ctx, path, func(req EvaluationRequest, p string, frame int) (*DataCollection, error) {
		loads++
		return NewDataCollection(), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	f := source.Evaluate(evalAt(0))
	if _, err := f.Result(); err != nil {
		t.Fatal(err)
	}
	f.Cancel()

	var events []EventKind
	source.Events().Subscribe(func(ev ChangeEvent) { events = append(events, ev.Kind) })

	source.Reload()
	if len(events) != 1 || events[0] != EventTargetChanged {
		t.Errorf("Reload should fire TargetChanged, got %v", events)
	}
	if source.Cache().Contains(0) {
		t.Error("Reload should drop the cached payload")
	}

	f2 := source.Evaluate(evalAt(0))
	if _, err := f2.Result(); err != nil {
		t.Fatal(err)
	}
	f2.Cancel()
	if loads != 2 {
		t.Errorf("loads = %d, want 2 after reload", loads)
	}
}

// TestFileSource_LoaderErrorBecomesErrorState tests failure conversion
func TestFileSource_LoaderErrorBecomesErrorState(t *testing.T) {
	ctx := inlineContext()
	path := writeTempFile(t, "broken")

	source, err := NewFileSource(ctx, path, func(req EvaluationRequest, p string, frame int) (*DataCollection, error) {
		return nil, errors.New("parse error at line 3")
	})
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	f := source.Evaluate(evalAt(0))
	state, err := f.Result()
	f.Cancel()
	if err != nil {
		t.Fatalf("loader errors should surface as error states, got %v", err)
	}
	if !state.Status().IsError() {
		t.Errorf("status = %v, want error", state.Status())
	}
	if state.Status().Message != "parse error at line 3" {
		t.Errorf("message = %q", state.Status().Message)
	}
}

// TestFileSource_MissingFile tests construction against a missing path
func TestFileSource_MissingFile(t *testing.T) {
	ctx := inlineContext()
	_, err := NewFileSource(ctx, filepath.Join(t.TempDir(), "nope.txt"), func(req EvaluationRequest, p string, frame int) (*DataCollection, error) {
		return NewDataCollection(), nil
	})
	if err == nil {
		t.Error("missing file should fail construction")
	}
}

// TestFileSource_RemoveNodeStopsWatcher tests that removing the node
// shuts the file watcher down with it
func TestFileSource_RemoveNodeStopsWatcher(t *testing.T) {
	ctx := inlineContext()
	path := writeTempFile(t, "watched")

	source, err := NewFileSource(ctx, path, func(req EvaluationRequest, p string, frame int) (*DataCollection, error) {
		return NewDataCollection(), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx.RemoveNode(source.Handle())

	if source.watcher != nil {
		t.Error("removing the node should close and release the watcher")
	}
	if !source.Handle().IsNull() {
		t.Error("removed node should hold the null handle")
	}

	// A modification event that raced the removal may still trigger a
	// reload; it must be harmless on a detached node.
	source.Reload()
	if err := source.Close(); err != nil {
		t.Errorf("Close after removal: %v", err)
	}
}

// TestFileSource_FrameValidity tests multi-frame validity windows
func TestFileSource_FrameValidity(t *testing.T) {
	ctx := inlineContext()
	path := writeTempFile(t, "frames")

	source, err := NewFileSource(ctx, path, func(req EvaluationRequest, p string, frame int) (*DataCollection, error) {
		return NewDataCollection(), nil
	}, WithFrameCount(10))
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	if source.SourceFrames() != 10 {
		t.Errorf("SourceFrames = %d", source.SourceFrames())
	}

	f := source.Evaluate(evalAt(TimeForFrame(3)))
	state, err := f.Result()
	f.Cancel()
	if err != nil {
		t.Fatal(err)
	}
	want := NewTimeInterval(TimeForFrame(3), TimeForFrame(4)-1)
	if state.Validity() != want {
		t.Errorf("validity = %v, want %v", state.Validity(), want)
	}
	if !state.Validity().Contains(TimeForFrame(3) + TicksPerFrame/2) {
		t.Error("mid-frame time should be covered")
	}
	if state.Validity().Contains(TimeForFrame(4)) {
		t.Error("next frame must not be covered")
	}
}
