// Package schedule holds the pure scheduling computations: overlap
// detection between task windows and free-slot scanning within business
// hours. Nothing here performs I/O; every function is safe to call from
// concurrent requests.
package schedule

import (
	"time"

	"github.com/Killgreck/agenda/internal/model"
)

// DefaultDuration is assumed for windows with no explicit end.
const DefaultDuration = time.Hour

// Window is a candidate or already-scheduled time range on a calendar day.
// A zero End means the window runs for DefaultDuration from Start.
type Window struct {
	Start    time.Time
	End      time.Time
	IsAllDay bool
	Title    string
}

// EffectiveEnd returns the window's end, defaulting to Start plus one hour.
func (w Window) EffectiveEnd() time.Time {
	if w.End.IsZero() {
		return w.Start.Add(DefaultDuration)
	}
	return w.End
}

// WindowForTask converts a stored task into a Window in the task's zone.
func WindowForTask(t *model.Task) Window {
	loc := t.Zone()
	w := Window{
		Start:    t.Date.In(loc),
		IsAllDay: t.IsAllDay,
		Title:    t.Title,
	}
	if t.EndDate != nil {
		w.End = t.EndDate.In(loc)
	}
	return w
}

// WindowsForTasks converts a task list, preserving order.
func WindowsForTasks(tasks []*model.Task) []Window {
	ws := make([]Window, 0, len(tasks))
	for _, t := range tasks {
		ws = append(ws, WindowForTask(t))
	}
	return ws
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
