// Package ingest orchestrates task creation: validation, recurrence
// expansion, conflict detection and persistence, plus the NEW_TASK
// broadcast for every stored instance.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Killgreck/agenda/internal/clock"
	"github.com/Killgreck/agenda/internal/holiday"
	"github.com/Killgreck/agenda/internal/model"
	"github.com/Killgreck/agenda/internal/notify"
	"github.com/Killgreck/agenda/internal/recurrence"
	"github.com/Killgreck/agenda/internal/repository"
	"github.com/Killgreck/agenda/internal/schedule"
)

var tracer = otel.Tracer("github.com/Killgreck/agenda/internal/ingest")

// Options tunes ingestion behavior.
type Options struct {
	// CheckRecurringConflicts also runs conflict detection on every
	// instance of a recurring series; the whole series is rejected on the
	// first conflict found. Off by default.
	CheckRecurringConflicts bool
}

// Service ingests task drafts.
type Service struct {
	repo     repository.Repository
	holidays holiday.Calendar
	clock    clock.Clock
	notifier notify.Notifier
	logger   *slog.Logger
	opts     Options

	// userLocks serializes check-then-save per user so two concurrent
	// requests cannot both pass the conflict check before either write
	// lands. Process-local only; multi-replica deployments need a
	// storage-level guard on top.
	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewService wires an ingestion service.
func NewService(
	repo repository.Repository,
	holidays holiday.Calendar,
	clk clock.Clock,
	notifier notify.Notifier,
	logger *slog.Logger,
	opts Options,
) *Service {
	return &Service{
		repo:      repo,
		holidays:  holidays,
		clock:     clk,
		notifier:  notifier,
		logger:    logger,
		opts:      opts,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Ingest validates the draft, materializes its instances and persists the
// ones that pass conflict checking. Single events that overlap existing
// tasks return a *model.ConflictError carrying the conflicting tasks and a
// suggested alternative slot.
func (s *Service) Ingest(ctx context.Context, draft *model.TaskDraft) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "Service.Ingest")
	defer span.End()

	if err := draft.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("user.id", draft.UserID),
		attribute.Bool("task.recurring", draft.IsRecurring),
	)

	lock := s.userLock(draft.UserID)
	lock.Lock()
	defer lock.Unlock()

	var created []*model.Task
	var err error
	if draft.IsRecurring {
		created, err = s.ingestRecurring(ctx, draft)
	} else {
		created, err = s.ingestSingle(ctx, draft)
	}
	if err != nil {
		return nil, err
	}

	for _, task := range created {
		s.broadcast(ctx, notify.Event{
			Type:      notify.EventNewTask,
			Task:      task,
			Timestamp: s.clock.Now(),
		})
	}

	span.SetAttributes(attribute.Int("task.count", len(created)))
	return created, nil
}

func (s *Service) ingestRecurring(ctx context.Context, draft *model.TaskDraft) ([]*model.Task, error) {
	instances, err := recurrence.Expand(draft, s.holidays)
	if err != nil {
		return nil, err
	}

	if s.opts.CheckRecurringConflicts {
		for _, inst := range instances {
			if err := s.checkConflicts(ctx, inst); err != nil {
				return nil, err
			}
		}
	}

	created := make([]*model.Task, 0, len(instances))
	for _, inst := range instances {
		stored, err := s.repo.Save(ctx, inst)
		if err != nil {
			// No rollback of already-saved instances is attempted; the
			// request fails and the partial series remains visible.
			return nil, fmt.Errorf("save recurring instance: %w", err)
		}
		created = append(created, stored)
	}

	s.logger.InfoContext(ctx, "recurring series created",
		slog.String("user_id", draft.UserID),
		slog.String("recurrence_type", string(draft.RecurrenceType)),
		slog.Int("instances", len(created)),
	)
	return created, nil
}

func (s *Service) ingestSingle(ctx context.Context, draft *model.TaskDraft) ([]*model.Task, error) {
	task := &model.Task{
		UserID:      draft.UserID,
		Title:       draft.Title,
		Description: draft.Description,
		Date:        draft.Date.UTC(),
		Timezone:    draft.Timezone,
		IsAllDay:    draft.IsAllDay,
		Priority:    draft.Priority,
		Location:    draft.Location,
		Reminder:    draft.Reminder,
	}
	if draft.EndDate != nil {
		e := draft.EndDate.UTC()
		task.EndDate = &e
	}

	if err := s.checkConflicts(ctx, task); err != nil {
		return nil, err
	}

	stored, err := s.repo.Save(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	s.logger.InfoContext(ctx, "task created",
		slog.String("task_id", stored.ID),
		slog.String("user_id", stored.UserID),
	)
	return []*model.Task{stored}, nil
}

// checkConflicts compares the candidate against the user's tasks on the
// same calendar day and, on overlap, builds a ConflictError with a
// slot suggestion for that day.
func (s *Service) checkConflicts(ctx context.Context, candidate *model.Task) error {
	loc := candidate.Zone()
	day := candidate.Date.In(loc)

	existing, err := s.repo.GetTasksForUserOnDay(ctx, candidate.UserID, day)
	if err != nil {
		return fmt.Errorf("fetch tasks for conflict check: %w", err)
	}

	windows := schedule.WindowsForTasks(existing)
	conflicts := schedule.FindConflicts(schedule.WindowForTask(candidate), windows)
	if len(conflicts) == 0 {
		return nil
	}

	ce := &model.ConflictError{}
	for _, w := range conflicts {
		ce.Conflicts = append(ce.Conflicts, model.ConflictingTask{
			Title:    w.Title,
			Start:    w.Start,
			End:      w.EffectiveEnd(),
			IsAllDay: w.IsAllDay,
		})
	}

	if slots := schedule.FindAvailableSlots(windows, day, s.clock.Now()); len(slots) > 0 {
		suggestion := slots[0]
		ce.Suggestion = &suggestion
	}
	return ce
}

func (s *Service) broadcast(ctx context.Context, ev notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "event broadcast failed",
			slog.String("type", string(ev.Type)),
			slog.Any("error", err),
		)
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// SuggestSlots returns ranked free slots on day for the user, reusing the
// same scan that powers conflict suggestions.
func (s *Service) SuggestSlots(ctx context.Context, userID string, day time.Time) ([]time.Time, error) {
	existing, err := s.repo.GetTasksForUserOnDay(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks for slot scan: %w", err)
	}
	return schedule.FindAvailableSlots(schedule.WindowsForTasks(existing), day, s.clock.Now()), nil
}
