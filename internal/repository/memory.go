package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Killgreck/agenda/internal/model"
)

var tracer = otel.Tracer("github.com/Killgreck/agenda/internal/repository")

// Memory is an in-memory Repository guarded by a RWMutex.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]*model.Task)}
}

// Save stores a copy of the task, assigning an ID and timestamps when
// missing.
func (r *Memory) Save(ctx context.Context, task *model.Task) (*model.Task, error) {
	_, span := tracer.Start(ctx, "Memory.Save",
		trace.WithAttributes(attribute.String("task.title", task.Title)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *task
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.tasks[stored.ID] = &stored

	span.SetAttributes(attribute.String("task.id", stored.ID))
	return &stored, nil
}

// GetTasksForUserOnDay returns the user's tasks on day's calendar date,
// compared in day's zone, ordered by start time.
func (r *Memory) GetTasksForUserOnDay(ctx context.Context, userID string, day time.Time) ([]*model.Task, error) {
	_, span := tracer.Start(ctx, "Memory.GetTasksForUserOnDay",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	loc := day.Location()
	y, m, d := day.Date()

	var out []*model.Task
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		ty, tm, td := t.Date.In(loc).Date()
		if ty == y && tm == m && td == d {
			out = append(out, t)
		}
	}
	sortByDate(out)

	span.SetAttributes(attribute.Int("task.count", len(out)))
	return out, nil
}

// List returns tasks starting within [start, end), ordered by start time.
// An empty userID matches every user.
func (r *Memory) List(ctx context.Context, userID string, start, end time.Time) ([]*model.Task, error) {
	_, span := tracer.Start(ctx, "Memory.List")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Task
	for _, t := range r.tasks {
		if userID != "" && t.UserID != userID {
			continue
		}
		if t.Date.Before(start) || !t.Date.Before(end) {
			continue
		}
		out = append(out, t)
	}
	sortByDate(out)

	span.SetAttributes(attribute.Int("task.count", len(out)))
	return out, nil
}

// GetByID returns the task with the given ID.
func (r *Memory) GetByID(ctx context.Context, id string) (*model.Task, error) {
	_, span := tracer.Start(ctx, "Memory.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	span.SetAttributes(attribute.Bool("task.found", true))
	return t, nil
}

// Delete removes the task with the given ID.
func (r *Memory) Delete(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "Memory.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return model.ErrTaskNotFound
	}
	delete(r.tasks, id)
	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Count reports the current number of stored tasks.
func (r *Memory) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.tasks)), nil
}

func sortByDate(tasks []*model.Task) {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Date.Before(tasks[j].Date) })
}
