// Package clock provides an abstraction over time sources so that
// time-dependent components can be driven deterministically in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTicker(d time.Duration) Ticker
	NewTimer(d time.Duration) Timer
}

// Ticker delivers repeating ticks on Ch.
type Ticker interface {
	Ch() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// Timer delivers a single tick on Ch after its duration elapses.
type Timer interface {
	Ch() <-chan time.Time
	Reset(d time.Duration)
	Stop() bool
}

// SystemClock provides the real system time.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

func (systemClock) NewTimer(d time.Duration) Timer {
	return &systemTimer{t: time.NewTimer(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (t *systemTicker) Ch() <-chan time.Time {
	return t.t.C
}

func (t *systemTicker) Reset(d time.Duration) {
	t.t.Reset(d)
}

func (t *systemTicker) Stop() {
	t.t.Stop()
}

type systemTimer struct {
	t *time.Timer
}

func (t *systemTimer) Ch() <-chan time.Time {
	return t.t.C
}

func (t *systemTimer) Reset(d time.Duration) {
	t.t.Reset(d)
}

func (t *systemTimer) Stop() bool {
	return t.t.Stop()
}
