package flowtime

// Attribute is a type-safe key for a global attribute on a flow state.
type Attribute[T any] struct {
	name string
}

// NewAttribute creates an attribute key with the given name.
func NewAttribute[T any](name string) Attribute[T] {
	return Attribute[T]{name: name}
}

// Name returns the attribute's name (for debugging).
func (a Attribute[T]) Name() string {
	return a.name
}

// Get retrieves the attribute value from a flow state.
func (a Attribute[T]) Get(s *PipelineFlowState) (T, bool) {
	val, ok := s.AttributeValue(a.name)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := val.(T)
	if !ok {
		var zero T
		return zero, false
	}
	return typed, true
}

// MustGet retrieves the attribute value or panics if not found.
func (a Attribute[T]) MustGet(s *PipelineFlowState) T {
	val, ok := a.Get(s)
	if !ok {
		panic("attribute " + a.name + " not found")
	}
	return val
}

// GetOrDefault retrieves the attribute value or returns a default.
func (a Attribute[T]) GetOrDefault(s *PipelineFlowState, defaultVal T) T {
	if val, ok := a.Get(s); ok {
		return val
	}
	return defaultVal
}

// Set stores the attribute value on a flow state.
func (a Attribute[T]) Set(s *PipelineFlowState, val T) {
	s.SetAttribute(a.name, val)
}
