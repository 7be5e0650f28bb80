package flowtime

import (
	"fmt"
	"math"
)

// TimePoint is a discrete tick on the animation timeline.
//
// Times are measured in integer ticks rather than seconds to avoid
// rounding errors when comparing cache validity against requested times.
type TimePoint int64

// TicksPerSecond is the resolution of the timeline.
const TicksPerSecond = 4800

// TicksPerFrame is the default tick count between consecutive source
// frames (24 frames per second).
const TicksPerFrame = TicksPerSecond / 24

// TimeNegativeInfinity returns the smallest representable time value.
func TimeNegativeInfinity() TimePoint { return math.MinInt64 }

// TimePositiveInfinity returns the largest representable time value.
func TimePositiveInfinity() TimePoint { return math.MaxInt64 }

// TimeToSeconds converts timeline ticks to seconds.
func TimeToSeconds(t TimePoint) float64 { return float64(t) / TicksPerSecond }

// TimeFromSeconds converts seconds to timeline ticks.
func TimeFromSeconds(s float64) TimePoint {
	return TimePoint(math.Ceil(s*TicksPerSecond + 0.5))
}

// TimeForFrame returns the timeline tick at which a source frame is shown.
func TimeForFrame(frame int) TimePoint { return TimePoint(frame) * TicksPerFrame }

// FrameForTime returns the source frame displayed at the given tick.
func FrameForTime(t TimePoint) int { return int(t / TicksPerFrame) }

// TimeInterval is an inclusive range [Start, End] on the timeline.
//
// The zero value is the empty interval. Intervals form a semilattice
// under Intersect: the operation is commutative, associative and
// idempotent, and the empty interval is absorbing.
type TimeInterval struct {
	Start TimePoint
	End   TimePoint
}

// NewTimeInterval creates an interval with the given inclusive bounds.
func NewTimeInterval(start, end TimePoint) TimeInterval {
	return TimeInterval{Start: start, End: end}
}

// InstantInterval creates an interval containing exactly one time point.
func InstantInterval(t TimePoint) TimeInterval {
	return TimeInterval{Start: t, End: t}
}

// EmptyInterval returns the interval that contains no time values.
func EmptyInterval() TimeInterval {
	return TimeInterval{Start: TimeNegativeInfinity(), End: TimeNegativeInfinity()}
}

// InfiniteInterval returns the interval that contains every time value.
func InfiniteInterval() TimeInterval {
	return TimeInterval{Start: TimeNegativeInfinity(), End: TimePositiveInfinity()}
}

// IsEmpty reports whether the interval contains no time values.
func (iv TimeInterval) IsEmpty() bool {
	return iv.End == TimeNegativeInfinity() || iv.Start > iv.End
}

// IsInfinite reports whether the interval spans the whole timeline.
func (iv TimeInterval) IsInfinite() bool {
	return iv.Start == TimeNegativeInfinity() && iv.End == TimePositiveInfinity()
}

// Contains reports whether t lies within the interval (inclusive bounds).
// It is always false for an empty interval.
func (iv TimeInterval) Contains(t TimePoint) bool {
	if iv.IsEmpty() {
		return false
	}
	return iv.Start <= t && t <= iv.End
}

// Duration returns the difference between the end and the start time.
func (iv TimeInterval) Duration() TimePoint { return iv.End - iv.Start }

// Intersect returns the geometric intersection of two intervals.
// Intersecting with an empty interval yields the empty interval.
func (iv TimeInterval) Intersect(other TimeInterval) TimeInterval {
	if iv.IsEmpty() || other.IsEmpty() || iv.End < other.Start || iv.Start > other.End {
		return EmptyInterval()
	}
	if other.IsInfinite() {
		return iv
	}
	out := iv
	if other.Start > out.Start {
		out.Start = other.Start
	}
	if other.End < out.End {
		out.End = other.End
	}
	return out
}

// Overlaps reports whether two intervals share at least one time point.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	return !iv.Intersect(other).IsEmpty()
}

func (iv TimeInterval) String() string {
	if iv.IsEmpty() {
		return "[empty]"
	}
	if iv.IsInfinite() {
		return "[-inf, +inf]"
	}
	return fmt.Sprintf("[%d, %d]", iv.Start, iv.End)
}

// TimeIntervalUnion manages a set of non-overlapping time intervals.
// It is used to report which parts of the timeline a cache covers.
type TimeIntervalUnion struct {
	intervals []TimeInterval
}

// Add inserts an interval into the union, trimming it against the
// intervals already present so that members stay disjoint. Empty
// intervals are ignored.
func (u *TimeIntervalUnion) Add(iv TimeInterval) {
	if iv.IsEmpty() {
		return
	}
	kept := u.intervals[:0]
	rest := u.intervals
	for i, existing := range rest {
		// A member covering what is left of the new interval absorbs it.
		if existing.Start <= iv.Start && iv.End <= existing.End {
			u.intervals = append(kept, rest[i:]...)
			return
		}
		// Members fully covered by the new interval are dropped.
		if iv.Start <= existing.Start && iv.End >= existing.End {
			continue
		}
		// Partial overlap: trim the new interval. The clipped bound is
		// strictly inside the new interval here, so the ±1 arithmetic
		// cannot wrap the infinity sentinels.
		if existing.Contains(iv.Start) {
			iv.Start = existing.End + 1
		} else if existing.Contains(iv.End) {
			iv.End = existing.Start - 1
		}
		kept = append(kept, existing)
	}
	u.intervals = append(kept, iv)
}

// Contains reports whether any member interval covers t.
func (u *TimeIntervalUnion) Contains(t TimePoint) bool {
	for _, iv := range u.intervals {
		if iv.Contains(t) {
			return true
		}
	}
	return false
}

// Intervals returns a copy of the member intervals.
func (u *TimeIntervalUnion) Intervals() []TimeInterval {
	out := make([]TimeInterval, len(u.intervals))
	copy(out, u.intervals)
	return out
}

// Clear removes all member intervals.
func (u *TimeIntervalUnion) Clear() { u.intervals = u.intervals[:0] }

// Len returns the number of member intervals.
func (u *TimeIntervalUnion) Len() int { return len(u.intervals) }
