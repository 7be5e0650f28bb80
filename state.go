package flowtime

// attributeMap is an ordered string-keyed map of global attributes.
// It is shared between flow states and cloned on first write.
type attributeMap struct {
	keys   []string
	values map[string]any
}

func newAttributeMap() *attributeMap {
	return &attributeMap{values: make(map[string]any)}
}

func (m *attributeMap) clone() *attributeMap {
	out := &attributeMap{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]any, len(m.values)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

func (m *attributeMap) set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// PipelineFlowState is a snapshot of a pipeline node's output: a shared
// payload, an evaluation status, the time interval over which the result
// stays correct, and an ordered attribute map.
//
// Copying a state with Copy is cheap: the payload and attributes are
// shared by reference. Mutation goes through MakeMutable and the
// attribute setters, which privately clone the shared parts on first
// write, so two live copies never observe each other's edits.
type PipelineFlowState struct {
	data     *DataCollection
	status   PipelineStatus
	validity TimeInterval
	attrs    *attributeMap

	// ownsData marks the payload as exclusively owned by this instance.
	// Cleared on Copy, set by the first MakeMutable call.
	ownsData  bool
	ownsAttrs bool

	// mutated memoizes MakeMutable clones by original object identity,
	// so repeated calls for one object within this state return the
	// same clone instead of cloning again.
	mutated map[DataObject]DataObject
}

// NewFlowState creates a state from a payload, status and validity interval.
func NewFlowState(data *DataCollection, status PipelineStatus, validity TimeInterval) PipelineFlowState {
	return PipelineFlowState{data: data, status: status, validity: validity}
}

// ErrorState creates a payload-free state carrying an error status.
// The validity interval controls how long the failure stays cached.
func ErrorState(err error, validity TimeInterval) PipelineFlowState {
	return PipelineFlowState{status: StatusFromError(err), validity: validity}
}

// Copy returns a cheap copy sharing the payload and attributes.
// The copy does not own its shared parts and will privately clone them
// before its first write.
func (s PipelineFlowState) Copy() PipelineFlowState {
	s.ownsData = false
	s.ownsAttrs = false
	s.mutated = nil
	return s
}

// Data returns the shared payload, which may be nil for an empty state.
// Callers must not modify the returned collection; use MakeMutable.
func (s *PipelineFlowState) Data() *DataCollection { return s.data }

// IsEmpty reports whether the state carries no payload.
func (s *PipelineFlowState) IsEmpty() bool { return s.data == nil }

// Status returns the evaluation status stored in the state.
func (s *PipelineFlowState) Status() PipelineStatus { return s.status }

// SetStatus replaces the stored status.
func (s *PipelineFlowState) SetStatus(status PipelineStatus) { s.status = status }

// Validity returns the interval over which the state remains correct.
func (s *PipelineFlowState) Validity() TimeInterval { return s.validity }

// SetValidity replaces the validity interval.
func (s *PipelineFlowState) SetValidity(iv TimeInterval) { s.validity = iv }

// IntersectValidity narrows the validity interval to its intersection
// with iv.
func (s *PipelineFlowState) IntersectValidity(iv TimeInterval) {
	s.validity = s.validity.Intersect(iv)
}

// Clear drops the payload reference, resets the validity to empty and
// clears the status and attributes.
func (s *PipelineFlowState) Clear() {
	s.data = nil
	s.attrs = nil
	s.validity = EmptyInterval()
	s.status = PipelineStatus{}
	s.ownsData = false
	s.ownsAttrs = false
	s.mutated = nil
}

// MutableData returns the payload after making sure it is exclusively
// owned by this state instance, cloning the shared collection on the
// first call.
func (s *PipelineFlowState) MutableData() *DataCollection {
	if s.data == nil {
		s.data = NewDataCollection()
		s.ownsData = true
		return s.data
	}
	if !s.ownsData {
		s.data = s.data.cloneShallow()
		s.ownsData = true
		s.mutated = nil
	}
	return s.data
}

// MakeMutable returns a private clone of obj that is safe to modify
// within this state. Repeat calls for the same object identity within
// one state instance return the previously created clone. The clone
// replaces obj in this state's payload; other states sharing the
// original payload are unaffected.
func (s *PipelineFlowState) MakeMutable(obj DataObject) DataObject {
	if obj == nil {
		panic("flowtime: MakeMutable called with nil object")
	}
	if clone, ok := s.mutated[obj]; ok {
		return clone
	}
	data := s.MutableData()
	clone := obj.Clone()
	data.replace(obj, clone)
	if s.mutated == nil {
		s.mutated = make(map[DataObject]DataObject)
	}
	s.mutated[obj] = clone
	return clone
}

// SetAttribute stores a global attribute, cloning the shared attribute
// map on first write.
func (s *PipelineFlowState) SetAttribute(key string, value any) {
	if s.attrs == nil {
		s.attrs = newAttributeMap()
		s.ownsAttrs = true
	} else if !s.ownsAttrs {
		s.attrs = s.attrs.clone()
		s.ownsAttrs = true
	}
	s.attrs.set(key, value)
}

// AttributeValue looks up a global attribute by name.
func (s *PipelineFlowState) AttributeValue(key string) (any, bool) {
	if s.attrs == nil {
		return nil, false
	}
	v, ok := s.attrs.values[key]
	return v, ok
}

// AttributeKeys returns the attribute names in insertion order.
func (s *PipelineFlowState) AttributeKeys() []string {
	if s.attrs == nil {
		return nil
	}
	out := make([]string, len(s.attrs.keys))
	copy(out, s.attrs.keys)
	return out
}

// Attributes builds a snapshot map of all global attributes.
func (s *PipelineFlowState) Attributes() map[string]any {
	out := make(map[string]any)
	if s.attrs != nil {
		for k, v := range s.attrs.values {
			out[k] = v
		}
	}
	return out
}
