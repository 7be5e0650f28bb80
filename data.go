package flowtime

// DataObject is one element of the shared payload graph that flows down a
// pipeline. Implementations must be pointer types (object identity is used
// as the copy-on-write key) and must treat published instances as
// immutable: all modification goes through PipelineFlowState.MakeMutable.
type DataObject interface {
	// Clone returns a private copy that is safe to modify without
	// affecting the original.
	Clone() DataObject
}

// DataCollection is the ordered list of data objects produced by a
// pipeline stage. Collections are shared between flow states by
// reference; a state privately clones the collection before its first
// write (see PipelineFlowState.MakeMutable).
type DataCollection struct {
	objects []DataObject
}

// NewDataCollection creates a collection holding the given objects.
func NewDataCollection(objects ...DataObject) *DataCollection {
	return &DataCollection{objects: objects}
}

// Objects returns a copy of the object list.
func (c *DataCollection) Objects() []DataObject {
	out := make([]DataObject, len(c.objects))
	copy(out, c.objects)
	return out
}

// Len returns the number of objects in the collection.
func (c *DataCollection) Len() int { return len(c.objects) }

// Contains reports whether obj is a member of the collection.
func (c *DataCollection) Contains(obj DataObject) bool {
	for _, o := range c.objects {
		if o == obj {
			return true
		}
	}
	return false
}

// AddObject appends an object to the collection.
func (c *DataCollection) AddObject(obj DataObject) {
	c.objects = append(c.objects, obj)
}

// RemoveObject removes an object from the collection, if present.
func (c *DataCollection) RemoveObject(obj DataObject) {
	for i, o := range c.objects {
		if o == obj {
			c.objects = append(c.objects[:i], c.objects[i+1:]...)
			return
		}
	}
}

// replace swaps old for clone in place, preserving order.
func (c *DataCollection) replace(old, clone DataObject) {
	for i, o := range c.objects {
		if o == old {
			c.objects[i] = clone
			return
		}
	}
}

// cloneShallow copies the object list while sharing the objects themselves.
func (c *DataCollection) cloneShallow() *DataCollection {
	objects := make([]DataObject, len(c.objects))
	copy(objects, c.objects)
	return &DataCollection{objects: objects}
}
