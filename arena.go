package flowtime

import "fmt"

// NodeHandle identifies a pipeline node inside a context's arena. A
// handle stays valid until its node is removed; after removal, lookups
// with the stale handle fail instead of resolving to whatever node later
// reuses the slot.
type NodeHandle struct {
	index      uint32
	generation uint32
}

// NullHandle is the zero handle; it never resolves to a node.
var NullHandle = NodeHandle{}

// IsNull reports whether the handle is the null handle.
func (h NodeHandle) IsNull() bool { return h.generation == 0 }

// String formats the handle for log output.
func (h NodeHandle) String() string {
	if h.IsNull() {
		return "node(null)"
	}
	return fmt.Sprintf("node(%d.%d)", h.index, h.generation)
}

// NodeArena owns the pipeline nodes of one context. Slots are reused
// after removal with a bumped generation, which invalidates handles to
// the removed node.
//
// The arena is confined to the context's executor and needs no locking.
type NodeArena struct {
	slots []arenaSlot
	free  []uint32
	count int
}

type arenaSlot struct {
	generation uint32
	node       PipelineObject
}

// NewNodeArena creates an empty arena.
func NewNodeArena() *NodeArena {
	return &NodeArena{}
}

// Insert adds a node and returns its handle.
func (a *NodeArena) Insert(node PipelineObject) NodeHandle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		slot := &a.slots[idx]
		slot.generation++
		slot.node = node
		a.count++
		return NodeHandle{index: idx, generation: slot.generation}
	}
	a.slots = append(a.slots, arenaSlot{generation: 1, node: node})
	a.count++
	return NodeHandle{index: uint32(len(a.slots) - 1), generation: 1}
}

// Get resolves a handle to its node. It returns nil for the null handle,
// for handles whose node was removed, and for handles from another arena.
func (a *NodeArena) Get(h NodeHandle) PipelineObject {
	if h.IsNull() || int(h.index) >= len(a.slots) {
		return nil
	}
	slot := &a.slots[h.index]
	if slot.generation != h.generation {
		return nil
	}
	return slot.node
}

// Remove deletes the node behind h and invalidates the handle. Removing
// an already-removed or null handle is a no-op.
func (a *NodeArena) Remove(h NodeHandle) {
	node := a.Get(h)
	if node == nil {
		return
	}
	slot := &a.slots[h.index]
	slot.node = nil
	a.free = append(a.free, h.index)
	a.count--
}

// Len returns the number of live nodes.
func (a *NodeArena) Len() int { return a.count }

// Each calls fn for every live node.
func (a *NodeArena) Each(fn func(NodeHandle, PipelineObject)) {
	for i := range a.slots {
		slot := &a.slots[i]
		if slot.node != nil {
			fn(NodeHandle{index: uint32(i), generation: slot.generation}, slot.node)
		}
	}
}
