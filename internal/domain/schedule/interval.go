// Package schedule contains the pure scheduling logic of the engine:
// time-interval arithmetic, candidate slot generation and conflict
// resolution. Nothing in this package touches a store or the clock.
package schedule

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
// Callers are expected to hand well-formed intervals (Start < End) to the
// functions below; malformed ranges are rejected at the usecase boundary.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b share any instant under half-open
// semantics. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether the instant t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Encloses reports whether other lies entirely within iv.
func (iv Interval) Encloses(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Merge coalesces the given intervals into the minimal ordered set of
// non-overlapping intervals covering the same total time. Adjacent
// intervals (next.Start == current.End) are merged as well.
func Merge(intervals []Interval) []Interval {
	if len(intervals) <= 1 {
		return append([]Interval(nil), intervals...)
	}

	sorted := append([]Interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}

			continue
		}

		merged = append(merged, current)
		current = next
	}

	return append(merged, current)
}
