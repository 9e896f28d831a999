package reminder

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Killgreck/agenda/internal/clock"
	"github.com/Killgreck/agenda/internal/model"
	"github.com/Killgreck/agenda/internal/notify"
	"github.com/Killgreck/agenda/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Publish(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) all() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

var sweepNow = time.Date(2024, time.June, 10, 14, 0, 0, 0, time.UTC)

func newTestSweeper(t *testing.T) (*Sweeper, *repository.Memory, *recordingNotifier) {
	t.Helper()
	repo := repository.NewMemory()
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSweeper(repo, notifier, clock.Fixed(sweepNow), logger), repo, notifier
}

func saveTask(t *testing.T, repo *repository.Memory, title string, date time.Time, reminders ...int) *model.Task {
	t.Helper()
	saved, err := repo.Save(context.Background(), &model.Task{
		UserID:   "u1",
		Title:    title,
		Date:     date,
		Reminder: reminders,
	})
	require.NoError(t, err)
	return saved
}

func TestSweepFiresDueReminder(t *testing.T) {
	sw, repo, notifier := newTestSweeper(t)

	// Starts in 10 minutes with a 15-minute reminder: due 5 minutes ago.
	task := saveTask(t, repo, "Dentist", sweepNow.Add(10*time.Minute), 15)

	sw.Sweep()

	events := notifier.all()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, notify.EventReminder, ev.Type)
	assert.Equal(t, task.ID, ev.TaskID)
	assert.Equal(t, "Dentist", ev.Title)
	assert.Equal(t, 15, ev.Minutes)
	require.NotNil(t, ev.Date)
	assert.True(t, ev.Date.Equal(task.Date))
}

func TestSweepSkipsNotYetDue(t *testing.T) {
	sw, repo, notifier := newTestSweeper(t)

	// Starts in an hour with a 15-minute reminder: due in 45 minutes.
	saveTask(t, repo, "Dentist", sweepNow.Add(time.Hour), 15)

	sw.Sweep()
	assert.Empty(t, notifier.all())
}

func TestSweepSkipsStartedTasks(t *testing.T) {
	sw, repo, notifier := newTestSweeper(t)

	saveTask(t, repo, "Dentist", sweepNow.Add(-10*time.Minute), 15)

	sw.Sweep()
	assert.Empty(t, notifier.all())
}

func TestSweepDedupsAcrossRuns(t *testing.T) {
	sw, repo, notifier := newTestSweeper(t)

	saveTask(t, repo, "Dentist", sweepNow.Add(10*time.Minute), 15)

	sw.Sweep()
	sw.Sweep()
	assert.Len(t, notifier.all(), 1)
}

func TestSweepMultipleOffsets(t *testing.T) {
	sw, repo, notifier := newTestSweeper(t)

	// Both the 60- and 15-minute reminders are already due; the 5-minute
	// one is not.
	saveTask(t, repo, "Dentist", sweepNow.Add(10*time.Minute), 60, 15, 5)

	sw.Sweep()

	events := notifier.all()
	require.Len(t, events, 2)
	minutes := []int{events[0].Minutes, events[1].Minutes}
	assert.ElementsMatch(t, []int{60, 15}, minutes)
}

// stepClock is a settable clock for multi-sweep tests.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSweepPrunesStartedTasks(t *testing.T) {
	repo := repository.NewMemory()
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := &stepClock{t: sweepNow}
	sw := NewSweeper(repo, notifier, clk, logger)

	saveTask(t, repo, "Dentist", sweepNow.Add(10*time.Minute), 15)

	sw.Sweep()
	require.Len(t, notifier.all(), 1)

	sw.mu.Lock()
	pending := len(sw.sent)
	sw.mu.Unlock()
	assert.Equal(t, 1, pending, "dedup entry held while the task is pending")

	// Once the task has started its dedup entry is dropped again.
	clk.advance(20 * time.Minute)
	sw.Sweep()

	sw.mu.Lock()
	pending = len(sw.sent)
	sw.mu.Unlock()
	assert.Zero(t, pending)
	assert.Len(t, notifier.all(), 1, "no duplicate reminder")
}

func TestSweepIgnoresTasksWithoutReminders(t *testing.T) {
	sw, repo, notifier := newTestSweeper(t)

	saveTask(t, repo, "Dentist", sweepNow.Add(10*time.Minute))

	sw.Sweep()
	assert.Empty(t, notifier.all())
}
