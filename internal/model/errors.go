package model

import (
	"fmt"
	"strings"
	"time"
)

// ErrTaskNotFound is returned by repositories when no task matches an ID.
var ErrTaskNotFound = TaskError{Message: "task not found"}

// TaskError represents a simple domain error for tasks.
type TaskError struct {
	Message string
}

func (e TaskError) Error() string {
	return e.Message
}

// ValidationError reports a draft that fails its precondition checks. It is
// surfaced before any expansion or conflict detection runs and is never
// retried automatically.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictingTask identifies one already-scheduled task that overlaps a
// candidate window.
type ConflictingTask struct {
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	IsAllDay bool      `json:"is_all_day"`
}

// ConflictError reports that a candidate task overlaps existing tasks.
// Suggestion carries the best free slot found on the same day; when the day
// has no free slot left, Suggestion is nil and the message tells the caller
// to pick another day.
type ConflictError struct {
	Conflicts  []ConflictingTask `json:"conflicts"`
	Suggestion *time.Time        `json:"suggestion,omitempty"`
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	b.WriteString("time conflict with ")
	for i, c := range e.Conflicts {
		if i > 0 {
			b.WriteString(", ")
		}
		if c.IsAllDay {
			fmt.Fprintf(&b, "%q (all day)", c.Title)
			continue
		}
		fmt.Fprintf(&b, "%q at %s", c.Title, c.Start.Format("15:04"))
	}
	if e.Suggestion != nil {
		fmt.Fprintf(&b, "; next available slot is %s", e.Suggestion.Format("15:04"))
	} else {
		b.WriteString("; no free slots remain on this day, please choose another day")
	}
	return b.String()
}
