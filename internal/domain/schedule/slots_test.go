package schedule

import (
	"testing"
	"time"

	"clinicbook/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workingHours(t *testing.T, start, end string) entity.WorkingHours {
	t.Helper()

	startTime, err := entity.ParseTimeOfDay(start)
	require.NoError(t, err)
	endTime, err := entity.ParseTimeOfDay(end)
	require.NoError(t, err)

	return entity.WorkingHours{Start: startTime, End: endTime}
}

func TestGenerateSlots_Count(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    string
		end      string
		duration time.Duration
		want     int
	}{
		{"full day 30m", "09:00", "17:00", 30 * time.Minute, 16},
		{"full day 60m", "09:00", "17:00", time.Hour, 8},
		{"uneven window drops partial slot", "09:00", "10:45", 30 * time.Minute, 3},
		{"window shorter than slot", "09:00", "09:20", 30 * time.Minute, 0},
		{"45m slots in 8h", "09:00", "17:00", 45 * time.Minute, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := GenerateSlots(day, workingHours(t, tt.start, tt.end), tt.duration)
			assert.Len(t, slots, tt.want)
		})
	}
}

func TestGenerateSlots_BackToBack(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	slots := GenerateSlots(day, workingHours(t, "09:00", "17:00"), 30*time.Minute)
	require.NotEmpty(t, slots)

	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), slots[0].StartTime)
	assert.Equal(t, time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC), slots[len(slots)-1].EndTime)

	for i, slot := range slots {
		assert.Equal(t, 30*time.Minute, slot.EndTime.Sub(slot.StartTime))
		assert.True(t, slot.Available)
		if i > 0 {
			assert.Equal(t, slots[i-1].EndTime, slot.StartTime, "slots must abut")
		}
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	hours := workingHours(t, "09:00", "17:00")

	first := GenerateSlots(day, hours, 30*time.Minute)
	second := GenerateSlots(day, hours, 30*time.Minute)

	assert.Equal(t, first, second)
}

func TestGenerateSlots_DefaultDuration(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	slots := GenerateSlots(day, workingHours(t, "09:00", "10:00"), 0)

	require.Len(t, slots, 2)
	assert.Equal(t, DefaultSlotDuration, slots[0].EndTime.Sub(slots[0].StartTime))
}

func TestGenerateSlots_EmptyWindow(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	hours := entity.WorkingHours{
		Start: entity.TimeOfDay{Hour: 17},
		End:   entity.TimeOfDay{Hour: 9},
	}

	assert.Nil(t, GenerateSlots(day, hours, 30*time.Minute))
}
