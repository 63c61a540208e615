package app_test

import (
	"context"
	"testing"
	"time"

	"compquiz/internal/app"
	"compquiz/internal/domain"
	"github.com/jonboulle/clockwork"
)

func TestClockSchedulerFiresAndStops(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := app.NewClockScheduler(clock)

	fired := make(chan struct{}, 1)
	sched.AfterFunc(time.Second, func() { fired <- struct{}{} })
	stopped := make(chan struct{}, 1)
	stop := sched.AfterFunc(time.Second, func() { stopped <- struct{}{} })
	if !stop() {
		t.Fatalf("expected stop to cancel a pending timer")
	}

	clock.Advance(time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected callback after advancing the clock")
	}
	select {
	case <-stopped:
		t.Fatalf("stopped callback must not run")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionCountdownOnFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &fakeSource{questions: threeQuestions()}
	session := app.NewSession("clocked", app.NewProvider(source), app.NewClockScheduler(clock), app.SessionConfig{
		TimeLimit:    3,
		Tick:         time.Second,
		AdvanceDelay: 3 * time.Second,
	})
	defer session.Close()

	if _, err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	session.Continue()

	for i := 0; i < 3; i++ {
		waitForTimer(t, clock)
		clock.Advance(time.Second)
	}
	waitForTimer(t, clock)
	snap := session.Snapshot()
	if snap.Phase != domain.PhaseAnswered || !snap.TimedOut {
		t.Fatalf("expected timeout after 3 ticks, got %+v", snap)
	}

	clock.Advance(3 * time.Second)
	waitForTimer(t, clock)
	snap = session.Snapshot()
	if snap.Phase != domain.PhaseQuestion || snap.Index != 1 || snap.TimeLeft != 3 {
		t.Fatalf("expected auto advance to question 2, got %+v", snap)
	}
}

func waitForTimer(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("waiting for timer: %v", err)
	}
}
