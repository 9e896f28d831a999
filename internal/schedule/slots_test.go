package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// yesterday makes every scan treat preferredDay as a future day.
var yesterday = time.Date(2024, time.June, 9, 12, 0, 0, 0, time.UTC)

func day() time.Time {
	return time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
}

func TestFindAvailableSlotsEmptyDay(t *testing.T) {
	slots := FindAvailableSlots(nil, day(), yesterday)
	require.Len(t, slots, MaxSlots)

	// First free half-hours of the day, ranked core-hours-first: the two
	// 08:xx starts are off-peak and sort behind 09:00 onwards.
	want := []time.Time{at(9, 0), at(9, 30), at(10, 0), at(8, 0), at(8, 30)}
	for i, s := range slots {
		assert.True(t, s.Equal(want[i]), "slot %d: got %v want %v", i, s, want[i])
	}
}

func TestFindAvailableSlotsSkipsBusyRanges(t *testing.T) {
	existing := []Window{timed("Busy", at(9, 0), at(10, 0))}

	slots := FindAvailableSlots(existing, day(), yesterday)
	require.Len(t, slots, MaxSlots)

	// 08:00-09:00 touches the meeting without overlapping; 08:30-09:30
	// overlaps, so the scan jumps past the meeting to 10:00.
	want := []time.Time{at(10, 0), at(10, 30), at(11, 0), at(11, 30), at(8, 0)}
	for i, s := range slots {
		assert.True(t, s.Equal(want[i]), "slot %d: got %v want %v", i, s, want[i])
	}
}

func TestFindAvailableSlotsShortMeetingRanking(t *testing.T) {
	// A 09:00-09:30 standup: 08:00 fits, 08:30 overlaps, 09:30 onward is
	// free. Core-hour 09:30 outranks the off-peak 08:00.
	existing := []Window{timed("Standup", at(9, 0), at(9, 30))}

	slots := FindAvailableSlots(existing, day(), yesterday)
	require.NotEmpty(t, slots)
	assert.True(t, slots[0].Equal(at(9, 30)))
	assert.Contains(t, slots, at(8, 0))
}

func TestFindAvailableSlotsCap(t *testing.T) {
	slots := FindAvailableSlots(nil, day(), yesterday)
	assert.Len(t, slots, MaxSlots)
}

func TestFindAvailableSlotsTodayStartsFromNow(t *testing.T) {
	now := time.Date(2024, time.June, 10, 14, 10, 0, 0, time.UTC)

	slots := FindAvailableSlots(nil, day(), now)
	require.Len(t, slots, MaxSlots)
	assert.True(t, slots[0].Equal(at(14, 30)), "scan starts at the next half hour")
	for _, s := range slots {
		assert.False(t, s.Before(at(14, 30)))
	}
}

func TestFindAvailableSlotsTodayBeforeOpening(t *testing.T) {
	now := time.Date(2024, time.June, 10, 6, 45, 0, 0, time.UTC)

	slots := FindAvailableSlots(nil, day(), now)
	require.NotEmpty(t, slots)
	// Ranked core-first, so the earliest slot is 08:00 but not first.
	assert.Contains(t, slots, at(8, 0))
}

func TestFindAvailableSlotsTodayAfterClosing(t *testing.T) {
	now := time.Date(2024, time.June, 10, 18, 0, 0, 0, time.UTC)
	assert.Empty(t, FindAvailableSlots(nil, day(), now))

	now = time.Date(2024, time.June, 10, 21, 30, 0, 0, time.UTC)
	assert.Empty(t, FindAvailableSlots(nil, day(), now))
}

func TestFindAvailableSlotsIgnoresAllDay(t *testing.T) {
	existing := []Window{allDay("Offsite", day())}

	slots := FindAvailableSlots(existing, day(), yesterday)
	assert.Len(t, slots, MaxSlots)
}

func TestFindAvailableSlotsFullyBooked(t *testing.T) {
	existing := []Window{timed("All day in meetings", at(8, 0), at(18, 0))}
	assert.Empty(t, FindAvailableSlots(existing, day(), yesterday))
}

func TestFindAvailableSlotsOpenEndedBusy(t *testing.T) {
	// No end: the busy window runs 09:00-10:00 by the default duration.
	existing := []Window{{Start: at(9, 0), Title: "Open-ended"}}

	slots := FindAvailableSlots(existing, day(), yesterday)
	require.NotEmpty(t, slots)
	assert.True(t, slots[0].Equal(at(10, 0)))
}

func TestNextHalfHour(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{at(14, 0), at(14, 0)},
		{at(14, 1), at(14, 30)},
		{at(14, 29), at(14, 30)},
		{at(14, 30), at(14, 30)},
		{at(14, 31), at(15, 0)},
	}
	for _, tc := range tests {
		got := nextHalfHour(tc.in)
		assert.True(t, got.Equal(tc.want), "nextHalfHour(%v) = %v, want %v", tc.in, got, tc.want)
	}
}
