package entity

import "time"

// CandidateSlot is a fixed-duration bookable window offered to patients.
// Slots are produced fresh for every availability request and never persisted.
type CandidateSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
}
