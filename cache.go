package flowtime

import (
	"sync"
)

// PipelineCache stores up to two results per pipeline node: the most
// recently inserted state and the state covering the context's display
// time. The display-time slot can survive invalidation as stale contents
// so interactive consumers keep showing something while a fresh result
// is computed.
//
// Cache mutation happens on the owning node's executor; the mutex only
// guards cross-goroutine reads of the slots.
type PipelineCache struct {
	mu sync.Mutex

	mostRecent PipelineFlowState
	current    PipelineFlowState

	stale    PipelineFlowState
	hasStale bool

	// restriction, while set, is intersected into the validity of every
	// accepted state. It guards against a late-arriving result computed
	// from input that has since changed.
	restriction    TimeInterval
	hasRestriction bool
}

// NewPipelineCache creates an empty cache.
func NewPipelineCache() *PipelineCache {
	c := &PipelineCache{}
	c.mostRecent.SetValidity(EmptyInterval())
	c.current.SetValidity(EmptyInterval())
	return c
}

// Contains reports whether either slot's validity covers t.
func (c *PipelineCache) Contains(t TimePoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mostRecent.Validity().Contains(t) || c.current.Validity().Contains(t)
}

// At returns the state covering t, or an empty state with empty validity
// when neither slot covers it. It never fails.
func (c *PipelineCache) At(t TimePoint) PipelineFlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mostRecent.Validity().Contains(t) {
		return c.mostRecent.Copy()
	}
	if c.current.Validity().Contains(t) {
		return c.current.Copy()
	}
	empty := PipelineFlowState{}
	empty.SetValidity(EmptyInterval())
	return empty
}

// Insert stores state as the most recent result and additionally
// promotes it to the display-time slot when its validity covers
// ownerTime. An active validity restriction is intersected into the
// state before acceptance.
func (c *PipelineCache) Insert(state PipelineFlowState, ownerTime TimePoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasRestriction {
		state.IntersectValidity(c.restriction)
	}
	c.mostRecent = state
	if state.Validity().Contains(ownerTime) {
		c.current = state
		c.stale = PipelineFlowState{}
		c.hasStale = false
	}
	return true
}

// InsertFuture arranges for the future's result to be inserted once it
// settles, without blocking the caller. The insertion runs on ex, and a
// canceled or failed future inserts nothing. ownerTime is re-read at
// insertion time so the promotion decision uses the then-current display
// time.
func (c *PipelineCache) InsertFuture(f SharedFuture[PipelineFlowState], ex Executor, ownerTime func() TimePoint) {
	f.WhenFinished(ex, func(state PipelineFlowState, err error) {
		if err != nil {
			return
		}
		c.Insert(state, ownerTime())
	})
}

// Invalidate narrows both slots' validity to keep. A slot left with
// empty validity is cleared, except the display-time slot when keepStale
// is set: its payload is then retained as stale contents, reachable only
// through StaleContents.
func (c *PipelineCache) Invalidate(keepStale bool, keep TimeInterval) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mostRecent.IntersectValidity(keep)
	if c.mostRecent.Validity().IsEmpty() {
		c.mostRecent.Clear()
	}

	c.current.IntersectValidity(keep)
	if c.current.Validity().IsEmpty() {
		if keepStale && !c.current.IsEmpty() {
			c.stale = c.current.Copy()
			c.hasStale = true
		}
		c.current.Clear()
	}
}

// StaleContents returns the retained display-time payload from before
// the last invalidation, if any. It is a courtesy for interactive
// consumers and is never returned by At or counted by Contains.
func (c *PipelineCache) StaleContents() (PipelineFlowState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasStale {
		return PipelineFlowState{}, false
	}
	return c.stale.Copy(), true
}

// DiscardStaleContents drops the retained stale payload.
func (c *PipelineCache) DiscardStaleContents() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = PipelineFlowState{}
	c.hasStale = false
}

// RestrictValidityOfNextInsertedState arms the race guard: until the
// restriction is reset, every accepted state has its validity
// intersected with iv. Repeated calls narrow the restriction further.
func (c *PipelineCache) RestrictValidityOfNextInsertedState(iv TimeInterval) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasRestriction {
		c.restriction = c.restriction.Intersect(iv)
	} else {
		c.restriction = iv
		c.hasRestriction = true
	}
}

// ResetValidityRestriction disarms the race guard. Called at the start
// of each new evaluation round.
func (c *PipelineCache) ResetValidityRestriction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasRestriction = false
}

// CoveredIntervals reports which parts of the timeline the cache can
// serve, as a disjoint interval union.
func (c *PipelineCache) CoveredIntervals() TimeIntervalUnion {
	c.mu.Lock()
	defer c.mu.Unlock()
	var u TimeIntervalUnion
	u.Add(c.mostRecent.Validity())
	u.Add(c.current.Validity())
	return u
}

// MostRecent returns the most recently inserted state.
func (c *PipelineCache) MostRecent() PipelineFlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mostRecent.Copy()
}
