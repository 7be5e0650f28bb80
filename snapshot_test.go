package flowtime

import (
	"path/filepath"
	"testing"
)

// TestSnapshot_RoundTrip tests encode/decode of the serializable state
func TestSnapshot_RoundTrip(t *testing.T) {
	state := NewFlowState(nil, PipelineStatus{Type: StatusWarning, Message: "partial"}, NewTimeInterval(10, 20))
	state.SetAttribute("frame", int64(3))
	state.SetAttribute("source", "input.xyz")

	data, err := MarshalSnapshot(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if snap.Status.Type != StatusWarning || snap.Status.Message != "partial" {
		t.Errorf("status = %+v", snap.Status)
	}
	if snap.Validity != NewTimeInterval(10, 20) {
		t.Errorf("validity = %v", snap.Validity)
	}
	if len(snap.Attributes) != 2 || snap.Attributes[0].Key != "frame" || snap.Attributes[1].Key != "source" {
		t.Errorf("attributes lost order or content: %+v", snap.Attributes)
	}

	var restored PipelineFlowState
	snap.Apply(&restored)
	if v, ok := restored.AttributeValue("source"); !ok || v != "input.xyz" {
		t.Errorf("restored attribute = %v, %v", v, ok)
	}
}

// TestSnapshot_File tests the file helpers
func TestSnapshot_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.snap")
	state := NewFlowState(nil, PipelineStatus{Type: StatusSuccess}, InfiniteInterval())
	state.SetAttribute("k", "v")

	if err := SaveSnapshot(path, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !snap.Validity.IsInfinite() {
		t.Errorf("validity = %v", snap.Validity)
	}
}
