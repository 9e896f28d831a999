// Package repository persists task instances. The in-memory store backs
// tests and single-node deployments; the Postgres store is used whenever a
// database URL is configured.
package repository

import (
	"context"
	"time"

	"github.com/Killgreck/agenda/internal/model"
)

// Repository stores concrete task instances.
type Repository interface {
	// Save persists a task, assigning an ID when it has none, and returns
	// the stored task.
	Save(ctx context.Context, task *model.Task) (*model.Task, error)

	// GetTasksForUserOnDay returns the user's tasks whose start falls on
	// day's calendar date, evaluated in day's zone, ordered by start time.
	GetTasksForUserOnDay(ctx context.Context, userID string, day time.Time) ([]*model.Task, error)

	// List returns tasks starting within [start, end), ordered by start
	// time. An empty userID matches every user.
	List(ctx context.Context, userID string, start, end time.Time) ([]*model.Task, error)

	// GetByID returns the task with the given ID or model.ErrTaskNotFound.
	GetByID(ctx context.Context, id string) (*model.Task, error)

	// Delete removes the task with the given ID or returns
	// model.ErrTaskNotFound.
	Delete(ctx context.Context, id string) error

	// Count reports how many tasks are stored.
	Count(ctx context.Context) (int64, error)
}
