// Package recurrence expands recurring task drafts into concrete, dated
// occurrences.
//
// The expansion deliberately does not use RFC 5545 RRULE semantics: an
// RRULE skips dates that do not exist (a monthly rule anchored on the 31st
// simply has no February occurrence), while this scheduler clamps instead:
// day 31 becomes the last day of a short month, and a Feb 29 yearly anchor
// becomes Feb 28 in non-leap years. No occurrence is ever skipped for date
// arithmetic reasons; only holiday skipping removes occurrences.
package recurrence

import (
	"fmt"
	"time"

	"github.com/Killgreck/agenda/internal/holiday"
	"github.com/Killgreck/agenda/internal/model"
)

// Expand materializes a recurring draft into its concrete task instances,
// ordered chronologically. The draft must already be validated; Expand only
// fails on a recurrence type it does not know.
//
// All calendar walking happens in the draft's zone. For timed drafts the
// anchor's start time-of-day (and end time-of-day, when an end exists) is
// re-applied to every occurrence's calendar day; all-day drafts use bare
// midnight dates.
//
// When the draft skips holidays, occurrences falling on a holiday for the
// draft's country are omitted entirely. A failed holiday lookup counts as
// "not a holiday": holiday accuracy never blocks scheduling.
func Expand(draft *model.TaskDraft, cal holiday.Calendar) ([]*model.Task, error) {
	loc := draft.Zone()
	start := draft.RecurrenceStartDate.In(loc)
	end := draft.RecurrenceEndDate.In(loc)

	startDay := midnight(start)
	endDay := midnight(end)

	// Base time-of-day comes from the draft's primary date fields when the
	// caller set them; the recurrence start is the fallback anchor.
	anchorStart := start
	if !draft.Date.IsZero() {
		anchorStart = draft.Date.In(loc)
	}
	var anchorEnd time.Time
	if draft.EndDate != nil {
		anchorEnd = draft.EndDate.In(loc)
	}

	var days []time.Time
	switch draft.RecurrenceType {
	case model.RecurrenceDaily:
		days = dailyDays(startDay, endDay)
	case model.RecurrenceWeekly:
		days = weeklyDays(startDay, endDay, draft.RecurringDays)
	case model.RecurrenceMonthly:
		days = monthlyDays(startDay, endDay)
	case model.RecurrenceYearly:
		days = yearlyDays(startDay, endDay)
	default:
		return nil, fmt.Errorf("expand: unknown recurrence type %q", draft.RecurrenceType)
	}

	tasks := make([]*model.Task, 0, len(days))
	for _, day := range days {
		if draft.SkipHolidays && cal != nil {
			info, err := cal.IsHoliday(day, draft.HolidayCountry)
			if err == nil && info.IsHoliday {
				continue
			}
		}
		tasks = append(tasks, occurrence(draft, day, anchorStart, anchorEnd))
	}
	return tasks, nil
}

// occurrence builds one task instance on the given calendar day, carrying
// the anchor's time-of-day for timed drafts.
func occurrence(draft *model.TaskDraft, day, anchorStart, anchorEnd time.Time) *model.Task {
	loc := day.Location()

	var date time.Time
	var endDate *time.Time
	if draft.IsAllDay {
		date = day
		if draft.EndDate != nil {
			d := day
			endDate = &d
		}
	} else {
		date = atTimeOfDay(day, anchorStart, loc)
		if draft.EndDate != nil {
			e := atTimeOfDay(day, anchorEnd, loc)
			endDate = &e
		}
	}

	t := &model.Task{
		UserID:      draft.UserID,
		Title:       draft.Title,
		Description: draft.Description,
		Date:        date.UTC(),
		Timezone:    draft.Timezone,
		IsAllDay:    draft.IsAllDay,
		Priority:    draft.Priority,
		Location:    draft.Location,
		Reminder:    draft.Reminder,
	}
	if endDate != nil {
		u := endDate.UTC()
		t.EndDate = &u
	}
	return t
}

func dailyDays(startDay, endDay time.Time) []time.Time {
	var days []time.Time
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func weeklyDays(startDay, endDay time.Time, names []string) []time.Time {
	wanted := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		if wd, ok := model.ParseWeekday(name); ok {
			wanted[wd] = true
		}
	}

	var days []time.Time
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		if wanted[d.Weekday()] {
			days = append(days, d)
		}
	}
	return days
}

// monthlyDays emits the anchor's day-of-month once per month, clamping to
// the last day of months too short to hold it.
func monthlyDays(startDay, endDay time.Time) []time.Time {
	loc := startDay.Location()
	anchorDOM := startDay.Day()

	var days []time.Time
	year, month := startDay.Year(), startDay.Month()
	for {
		dom := anchorDOM
		if last := daysInMonth(year, month); dom > last {
			dom = last
		}
		d := time.Date(year, month, dom, 0, 0, 0, 0, loc)
		if d.After(endDay) {
			break
		}
		if !d.Before(startDay) {
			days = append(days, d)
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return days
}

// yearlyDays emits the anchor's month/day once per year. A Feb 29 anchor
// clamps to Feb 28 in non-leap years instead of skipping the year.
func yearlyDays(startDay, endDay time.Time) []time.Time {
	loc := startDay.Location()
	month, dom := startDay.Month(), startDay.Day()

	var days []time.Time
	for year := startDay.Year(); ; year++ {
		d := dom
		if month == time.February && d == 29 && !isLeapYear(year) {
			d = 28
		}
		day := time.Date(year, month, d, 0, 0, 0, 0, loc)
		if day.After(endDay) {
			break
		}
		if !day.Before(startDay) {
			days = append(days, day)
		}
	}
	return days
}

// atTimeOfDay combines day's calendar date with tod's wall-clock time.
func atTimeOfDay(day, tod time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), 0, loc)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
