// Package reminder periodically scans upcoming tasks and broadcasts
// REMINDER events for due reminder offsets. A sweep holds no per-task
// state beyond a dedup set, so restarting the process never leaks
// scheduled jobs.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Killgreck/agenda/internal/clock"
	"github.com/Killgreck/agenda/internal/notify"
	"github.com/Killgreck/agenda/internal/repository"
)

// lookahead bounds how far ahead of a task start a reminder can be
// configured; the sweep only needs to load tasks inside this horizon.
const lookahead = 31 * 24 * time.Hour

// Sweeper runs the reminder sweep on a cron schedule.
type Sweeper struct {
	repo     repository.Repository
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
	cron     *cron.Cron

	mu   sync.Mutex
	sent map[string]time.Time // broadcast (task, due) pairs -> task start
}

// NewSweeper wires a sweeper; Start schedules it.
func NewSweeper(repo repository.Repository, notifier notify.Notifier, clk clock.Clock, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		cron:     cron.New(),
		sent:     make(map[string]time.Time),
	}
}

// Start registers the sweep under the given cron spec ("@every 1m") and
// starts the scheduler.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("reminder sweeper started", slog.String("schedule", spec))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep broadcasts a REMINDER for every task reminder whose due time has
// arrived. Each (task, offset) pair fires once per process lifetime.
func (s *Sweeper) Sweep() {
	ctx := context.Background()
	now := s.clock.Now()
	s.prune(now)

	tasks, err := s.repo.List(ctx, "", now.Add(-time.Hour), now.Add(lookahead))
	if err != nil {
		s.logger.Error("reminder sweep failed", slog.Any("error", err))
		return
	}

	for _, task := range tasks {
		for _, minutes := range task.Reminder {
			due := task.Date.Add(-time.Duration(minutes) * time.Minute)
			if due.After(now) {
				continue
			}
			if task.Date.Before(now) {
				continue // task already started
			}
			key := task.ID + "/" + due.Format(time.RFC3339)
			if !s.markSent(key, task.Date) {
				continue
			}

			date := task.Date
			ev := notify.Event{
				Type:      notify.EventReminder,
				TaskID:    task.ID,
				Title:     task.Title,
				Date:      &date,
				Minutes:   minutes,
				Timestamp: now,
			}
			if err := s.notifier.Publish(ctx, ev); err != nil {
				s.logger.Warn("reminder broadcast failed",
					slog.String("task_id", task.ID),
					slog.Any("error", err),
				)
				continue
			}
			s.logger.Debug("reminder sent",
				slog.String("task_id", task.ID),
				slog.Int("minutes_before", minutes),
			)
		}
	}
}

func (s *Sweeper) markSent(key string, start time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sent[key]; ok {
		return false
	}
	s.sent[key] = start
	return true
}

// prune clears dedup entries for tasks that have already started; those
// reminders can never fire again, so the set stays bounded by the number
// of pending reminders.
func (s *Sweeper) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, start := range s.sent {
		if start.Before(now) {
			delete(s.sent, key)
		}
	}
}
