// Package notify broadcasts calendar events to interested parties. The
// orchestrator owns an explicit Notifier instead of any globally attached
// handler; delivery is fire-and-forget and a failed broadcast never fails
// the request that produced it.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Killgreck/agenda/internal/model"
)

// EventType enumerates the broadcast event kinds.
type EventType string

const (
	EventNewTask    EventType = "NEW_TASK"
	EventUpdateTask EventType = "UPDATE_TASK"
	EventDeleteTask EventType = "DELETE_TASK"
	EventReminder   EventType = "REMINDER"
)

// Event is the closed broadcast payload. Fields not relevant to an event
// type stay empty; there is deliberately no free-form metadata map.
type Event struct {
	Type      EventType   `json:"type"`
	Task      *model.Task `json:"task,omitempty"`
	TaskID    string      `json:"task_id,omitempty"`
	Title     string      `json:"title,omitempty"`
	Date      *time.Time  `json:"date,omitempty"`
	Minutes   int         `json:"minutes_before,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Notifier delivers events to connected consumers.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every wrapped notifier, joining their errors.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Notifier that drops every event; useful in tests.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
