package tracking

import "time"

// TimerHandle is a cancellable pending timer. Cancel reports whether the
// timer was stopped before firing.
type TimerHandle interface {
	Cancel() bool
}

// Scheduler owns time for the welfare monitor. The production implementation
// wraps the wall clock; tests substitute a virtual clock so nested reminder
// and timeout timers can be advanced deterministically.
type Scheduler interface {
	Now() time.Time
	Schedule(d time.Duration, fn func()) TimerHandle
}

// WallClockScheduler schedules against real time.
type WallClockScheduler struct{}

func (WallClockScheduler) Now() time.Time {
	return time.Now()
}

func (WallClockScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	return wallTimer{time.AfterFunc(d, fn)}
}

type wallTimer struct {
	t *time.Timer
}

func (w wallTimer) Cancel() bool {
	return w.t.Stop()
}
