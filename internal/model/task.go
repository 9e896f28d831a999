package model

import (
	"strings"
	"time"
)

// Priority classifies how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// RecurrenceType selects how a recurring draft repeats.
type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// Valid reports whether t is one of the known recurrence types.
func (t RecurrenceType) Valid() bool {
	switch t {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Task is one concrete, dated occurrence in a user's calendar. Recurring
// drafts materialize into many of these; single drafts into one.
//
// Date and EndDate are UTC instants. Timezone carries the IANA zone the
// task was scheduled in, so calendar-day boundaries are computed where the
// user lives instead of where the server runs.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Date        time.Time  `json:"date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Timezone    string     `json:"timezone"`
	IsAllDay    bool       `json:"is_all_day"`
	Priority    Priority   `json:"priority"`
	Location    string     `json:"location,omitempty"`
	Reminder    []int      `json:"reminder,omitempty"` // minutes before start
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Zone resolves the task's IANA zone, defaulting to UTC.
func (t *Task) Zone() *time.Location {
	return loadZone(t.Timezone)
}

// TaskDraft is the request-scoped input to task creation. It is either a
// single event (Date set) or a recurring series (IsRecurring with the
// recurrence fields set); Validate enforces which fields must be present
// in each mode.
type TaskDraft struct {
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	IsAllDay    bool     `json:"is_all_day"`
	Priority    Priority `json:"priority,omitempty"`
	Location    string   `json:"location,omitempty"`
	Reminder    []int    `json:"reminder,omitempty"`

	// Single-event fields.
	Date    time.Time  `json:"date,omitempty"`
	EndDate *time.Time `json:"end_date,omitempty"`

	// Recurrence fields.
	IsRecurring         bool           `json:"is_recurring"`
	RecurrenceType      RecurrenceType `json:"recurrence_type,omitempty"`
	RecurrenceStartDate time.Time      `json:"recurrence_start_date,omitempty"`
	RecurrenceEndDate   time.Time      `json:"recurrence_end_date,omitempty"`
	RecurringDays       []string       `json:"recurring_days,omitempty"`
	SkipHolidays        bool           `json:"skip_holidays"`
	HolidayCountry      string         `json:"holiday_country,omitempty"`
}

// Zone resolves the draft's IANA zone, defaulting to UTC. Unknown zone
// names are caught by Validate before Zone is used.
func (d *TaskDraft) Zone() *time.Location {
	return loadZone(d.Timezone)
}

func loadZone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a weekday name ("monday", case-insensitive) to its
// time.Weekday value.
func ParseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Validate checks the draft's precondition rules and normalizes defaults
// (empty priority becomes medium). It returns a *ValidationError describing
// the first violation found.
func (d *TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(d.UserID) == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}

	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if !d.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "priority must be low, medium or high"}
	}

	if d.Timezone != "" {
		if _, err := time.LoadLocation(d.Timezone); err != nil {
			return &ValidationError{Field: "timezone", Message: "unknown IANA timezone: " + d.Timezone}
		}
	}

	for _, m := range d.Reminder {
		if m < 0 {
			return &ValidationError{Field: "reminder", Message: "reminder offsets must be non-negative minutes"}
		}
	}

	if d.IsRecurring {
		return d.validateRecurrence()
	}
	return d.validateSingle()
}

func (d *TaskDraft) validateSingle() error {
	if d.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required for a single event"}
	}
	if d.EndDate != nil && d.EndDate.Before(d.Date) {
		return &ValidationError{Field: "end_date", Message: "end date must not be before start date"}
	}
	return nil
}

func (d *TaskDraft) validateRecurrence() error {
	if !d.RecurrenceType.Valid() {
		return &ValidationError{Field: "recurrence_type", Message: "recurrence type must be daily, weekly, monthly or yearly"}
	}
	if d.RecurrenceStartDate.IsZero() {
		return &ValidationError{Field: "recurrence_start_date", Message: "recurrence start date is required"}
	}
	if d.RecurrenceEndDate.IsZero() {
		return &ValidationError{Field: "recurrence_end_date", Message: "recurrence end date is required"}
	}
	if d.RecurrenceStartDate.After(d.RecurrenceEndDate) {
		return &ValidationError{Field: "recurrence_start_date", Message: "recurrence start date must not be after end date"}
	}
	if d.RecurrenceType == RecurrenceWeekly {
		if len(d.RecurringDays) == 0 {
			return &ValidationError{Field: "recurring_days", Message: "at least one weekday is required for weekly recurrence"}
		}
		for _, name := range d.RecurringDays {
			if _, ok := ParseWeekday(name); !ok {
				return &ValidationError{Field: "recurring_days", Message: "unknown weekday: " + name}
			}
		}
	}
	if d.SkipHolidays && strings.TrimSpace(d.HolidayCountry) == "" {
		return &ValidationError{Field: "holiday_country", Message: "holiday country is required when skipping holidays"}
	}
	return nil
}
