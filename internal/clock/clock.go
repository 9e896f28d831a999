// Package clock abstracts wall-clock reads so components that compare
// against "now" stay deterministic in tests. Callers capture a single Now
// value per operation instead of re-reading mid-computation.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns a Clock backed by time.Now.
func Real() Clock { return realClock{} }

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
