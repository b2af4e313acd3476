package schedule

import (
	"time"

	"clinicbook/internal/domain/entity"
)

// DefaultSlotDuration is the slot length used when none is configured.
const DefaultSlotDuration = 30 * time.Minute

// GenerateSlots produces the ordered sequence of back-to-back candidate
// slots of exactly the given duration inside the provider's working hours
// on the given calendar day. A final slot that would extend past the end of
// the working window is dropped. The output depends only on the inputs;
// occupancy is resolved separately.
func GenerateSlots(day time.Time, hours entity.WorkingHours, duration time.Duration) []entity.CandidateSlot {
	if duration <= 0 {
		duration = DefaultSlotDuration
	}

	windowStart := hours.Start.On(day)
	windowEnd := hours.End.On(day)
	if !windowStart.Before(windowEnd) {
		return nil
	}

	count := int(windowEnd.Sub(windowStart) / duration)
	slots := make([]entity.CandidateSlot, 0, count)
	for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(duration) {
		slots = append(slots, entity.CandidateSlot{
			StartTime: start,
			EndTime:   start.Add(duration),
			Available: true,
		})
	}

	return slots
}
