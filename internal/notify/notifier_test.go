package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestFanoutPublishesToAll(t *testing.T) {
	a, b := &stubNotifier{}, &stubNotifier{}
	f := Fanout{a, b}

	err := f.Publish(context.Background(), Event{Type: EventNewTask})
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestFanoutJoinsErrorsButStillDelivers(t *testing.T) {
	boom := errors.New("boom")
	a := &stubNotifier{err: boom}
	b := &stubNotifier{}
	f := Fanout{a, b}

	err := f.Publish(context.Background(), Event{Type: EventDeleteTask})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, b.calls, "a failing notifier does not stop the rest")
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Publish(context.Background(), Event{Type: EventReminder, Timestamp: time.Now()}))
}
