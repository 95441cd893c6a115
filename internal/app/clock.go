package app

import "time"

// Timer is the deadline source a round races answers against.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates timers and reports the current time. Tests swap it for a
// manually fired implementation.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// SystemClock is the wall-clock implementation.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTimer(d time.Duration) Timer {
	return stdTimer{t: time.NewTimer(d)}
}

type stdTimer struct {
	t *time.Timer
}

func (s stdTimer) C() <-chan time.Time { return s.t.C }

func (s stdTimer) Stop() bool { return s.t.Stop() }
