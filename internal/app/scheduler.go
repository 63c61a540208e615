package app

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler runs fn once after d. The returned stop func reports whether it
// prevented fn from running and is safe to call after fn has already run.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// ClockScheduler schedules callbacks on a clockwork clock.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type ClockScheduler struct {
	clock clockwork.Clock
}

func NewClockScheduler(clock clockwork.Clock) *ClockScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockScheduler{clock: clock}
}

func (s *ClockScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	timer := s.clock.AfterFunc(d, fn)
	return timer.Stop
}

// ticket identifies the question a scheduled callback belongs to. A callback
// whose ticket no longer matches the session is stale and must be dropped.
type ticket struct {
	epoch uint64
	index int
}
