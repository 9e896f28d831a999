package schedule

// FindConflicts returns the subset of existing windows that conflict with
// the candidate, preserving input order. An empty result means the
// candidate is free to schedule.
//
// All-day events are exclusive per day against each other: an all-day
// candidate conflicts only with existing all-day events on the same
// calendar day, never with timed ones. A timed candidate is blocked by any
// all-day event on its day, and otherwise overlaps timed events under the
// half-open interval test; touching boundaries do not conflict.
//
// Calendar-day comparisons happen in the candidate's zone, matching the
// day filter repositories apply, so tasks stored with other zones cannot
// slip past the all-day check.
func FindConflicts(candidate Window, existing []Window) []Window {
	var conflicts []Window
	loc := candidate.Start.Location()

	if candidate.IsAllDay {
		for _, w := range existing {
			if w.IsAllDay && sameDay(candidate.Start, w.Start.In(loc)) {
				conflicts = append(conflicts, w)
			}
		}
		return conflicts
	}

	candStart := candidate.Start
	candEnd := candidate.EffectiveEnd()

	for _, w := range existing {
		if w.IsAllDay {
			if sameDay(candStart, w.Start.In(loc)) {
				conflicts = append(conflicts, w)
			}
			continue
		}
		if candStart.Before(w.EffectiveEnd()) && candEnd.After(w.Start) {
			conflicts = append(conflicts, w)
		}
	}
	return conflicts
}
