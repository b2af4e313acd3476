package schedule

import (
	"time"

	"clinicbook/internal/domain/entity"
)

// ResolveAvailable filters candidate slots down to the ones that can
// actually be offered: a slot survives when it does not overlap any
// scheduled local appointment, does not overlap any external busy interval,
// and starts strictly after now. Slots abutting an appointment boundary are
// kept; half-open semantics mean touching endpoints do not conflict.
//
// Cancelled and completed appointments must be filtered out by the caller;
// the resolver treats every appointment it receives as blocking.
func ResolveAvailable(slots []entity.CandidateSlot, appointments []*entity.Appointment, busy []Interval, now time.Time) []entity.CandidateSlot {
	blocked := make([]Interval, 0, len(appointments)+len(busy))
	for _, appt := range appointments {
		blocked = append(blocked, Interval{Start: appt.StartTime, End: appt.EndTime})
	}
	blocked = append(blocked, busy...)
	blocked = Merge(blocked)

	available := make([]entity.CandidateSlot, 0, len(slots))
	for _, slot := range slots {
		if !slot.StartTime.After(now) {
			continue
		}
		if overlapsAny(Interval{Start: slot.StartTime, End: slot.EndTime}, blocked) {
			continue
		}

		slot.Available = true
		available = append(available, slot)
	}

	return available
}

// overlapsAny scans the merged, start-ordered blocked set for a conflict.
func overlapsAny(slot Interval, blocked []Interval) bool {
	for _, iv := range blocked {
		if !iv.Start.Before(slot.End) {
			// Blocked set is ordered; nothing later can overlap.
			return false
		}
		if Overlaps(slot, iv) {
			return true
		}
	}

	return false
}
