package flowtime

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// StateSnapshot is the serializable portion of a flow state: status,
// validity and the global attributes. The payload objects themselves are
// arbitrary in-memory structures and are not part of a snapshot.
type StateSnapshot struct {
	Status     PipelineStatus `msgpack:"status"`
	Validity   TimeInterval   `msgpack:"validity"`
	Attributes []SnapshotAttr `msgpack:"attributes"`
}

// SnapshotAttr preserves one attribute with its insertion position.
type SnapshotAttr struct {
	Key   string `msgpack:"key"`
	Value any    `msgpack:"value"`
}

// SnapshotOf extracts the serializable portion of a state.
func SnapshotOf(state PipelineFlowState) StateSnapshot {
	snap := StateSnapshot{
		Status:   state.Status(),
		Validity: state.Validity(),
	}
	for _, key := range state.AttributeKeys() {
		v, _ := state.AttributeValue(key)
		snap.Attributes = append(snap.Attributes, SnapshotAttr{Key: key, Value: v})
	}
	return snap
}

// Apply writes the snapshot's contents onto a state, preserving the
// recorded attribute order.
func (s StateSnapshot) Apply(state *PipelineFlowState) {
	state.SetStatus(s.Status)
	state.SetValidity(s.Validity)
	for _, attr := range s.Attributes {
		state.SetAttribute(attr.Key, attr.Value)
	}
}

// MarshalSnapshot encodes a state's snapshot.
func MarshalSnapshot(state PipelineFlowState) ([]byte, error) {
	data, err := msgpack.Marshal(SnapshotOf(state))
	if err != nil {
		return nil, fmt.Errorf("flowtime: encode snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a snapshot.
func UnmarshalSnapshot(data []byte) (StateSnapshot, error) {
	var snap StateSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return StateSnapshot{}, fmt.Errorf("flowtime: decode snapshot: %w", err)
	}
	return snap, nil
}

// SaveSnapshot writes a state's snapshot to a file.
func SaveSnapshot(path string, state PipelineFlowState) error {
	data, err := MarshalSnapshot(state)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSnapshot reads a snapshot from a file.
func LoadSnapshot(path string) (StateSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StateSnapshot{}, fmt.Errorf("flowtime: read snapshot: %w", err)
	}
	return UnmarshalSnapshot(data)
}
