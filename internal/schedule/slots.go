package schedule

import (
	"sort"
	"time"
)

// Slot-scan policy. Slots are assumed to run for SlotDuration; suggestions
// inside core hours rank above the off-peak edges of the business day.
const (
	BusinessOpenHour  = 8
	BusinessCloseHour = 18
	CoreOpenHour      = 9
	CoreCloseHour     = 17

	SlotStep     = 30 * time.Minute
	SlotDuration = time.Hour

	MaxSlots = 5
)

// FindAvailableSlots scans preferredDay for free SlotDuration-sized
// windows, returning up to MaxSlots start times ranked core-hours-first and
// chronologically within each group.
//
// When preferredDay is today (relative to now, compared in preferredDay's
// zone), the scan starts from now rounded up to the next half hour; a
// rounded time before opening snaps to opening, and one at or past closing
// yields no slots. All-day events are ignored: slot finding reasons only
// about timed gaps.
func FindAvailableSlots(existing []Window, preferredDay time.Time, now time.Time) []time.Time {
	loc := preferredDay.Location()
	open := atHour(preferredDay, BusinessOpenHour)
	closing := atHour(preferredDay, BusinessCloseHour)

	cursor := open
	if sameDay(preferredDay, now.In(loc)) {
		rounded := nextHalfHour(now.In(loc))
		if rounded.After(cursor) {
			cursor = rounded
		}
		if !cursor.Before(closing) {
			return nil
		}
	}

	busy := make([]Window, 0, len(existing))
	for _, w := range existing {
		if !w.IsAllDay {
			busy = append(busy, w)
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	var slots []time.Time
	for len(slots) < MaxSlots && cursor.Before(closing) {
		if blocker, ok := firstOverlap(busy, cursor, cursor.Add(SlotDuration)); ok {
			// Jump straight past the busy range instead of stepping
			// through a known-occupied interval.
			cursor = blocker.EffectiveEnd()
			continue
		}
		slots = append(slots, cursor)
		cursor = cursor.Add(SlotStep)
	}

	rankSlots(slots)
	return slots
}

func firstOverlap(busy []Window, start, end time.Time) (Window, bool) {
	for _, w := range busy {
		if start.Before(w.EffectiveEnd()) && end.After(w.Start) {
			return w, true
		}
	}
	return Window{}, false
}

// rankSlots stably moves core-hour slots ahead of off-peak ones. The scan
// produces slots in chronological order, so stability keeps each group
// chronological.
func rankSlots(slots []time.Time) {
	sort.SliceStable(slots, func(i, j int) bool {
		ci, cj := inCoreHours(slots[i]), inCoreHours(slots[j])
		if ci != cj {
			return ci
		}
		return false
	})
}

func inCoreHours(t time.Time) bool {
	h := t.Hour()
	return h >= CoreOpenHour && h < CoreCloseHour
}

func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

// nextHalfHour rounds t up to the next :00 or :30 wall-clock boundary.
func nextHalfHour(t time.Time) time.Time {
	rounded := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	if rounded.Before(t) {
		rounded = rounded.Add(time.Minute)
	}
	if rem := rounded.Minute() % 30; rem != 0 {
		rounded = rounded.Add(time.Duration(30-rem) * time.Minute)
	}
	return rounded
}
