package clock

import (
	"sync"
	"time"
)

// DeterministicClock is a Clock where time only moves when AdvanceTime is
// called, firing any timers or tickers that become due. Intended for tests.
type DeterministicClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*deterministicChron
}

func NewDeterministicClock(now time.Time) *DeterministicClock {
	return &DeterministicClock{now: now}
}

func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *DeterministicClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

func (c *DeterministicClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &deterministicChron{
		c:      c,
		ch:     make(chan time.Time, 1),
		due:    c.now.Add(d),
		period: d,
	}
	c.pending = append(c.pending, t)
	return &deterministicTicker{t}
}

func (c *DeterministicClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &deterministicChron{
		c:   c,
		ch:  make(chan time.Time, 1),
		due: c.now.Add(d),
	}
	c.pending = append(c.pending, t)
	return t
}

// AdvanceTime moves the clock forward by d, firing every due timer and
// ticker in due order. Tick delivery is non-blocking, like the runtime's
// own tickers: an unread tick is dropped rather than queued.
func (c *DeterministicClock) AdvanceTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.now.Add(d)
	for {
		var next *deterministicChron
		for _, t := range c.pending {
			if t.stopped || t.due.After(target) {
				continue
			}
			if next == nil || t.due.Before(next.due) {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.due
		select {
		case next.ch <- c.now:
		default:
		}
		if next.period > 0 {
			next.due = next.due.Add(next.period)
		} else {
			next.stopped = true
		}
	}
	c.now = target
}

// deterministicChron backs both timers and tickers; period 0 means one-shot.
type deterministicChron struct {
	c       *DeterministicClock
	ch      chan time.Time
	due     time.Time
	period  time.Duration
	stopped bool
}

func (t *deterministicChron) Ch() <-chan time.Time {
	return t.ch
}

func (t *deterministicChron) Reset(d time.Duration) {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.due = t.c.now.Add(d)
	if t.period > 0 {
		t.period = d
	}
	t.stopped = false
}

func (t *deterministicChron) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// deterministicTicker adapts deterministicChron to the Ticker interface,
// whose Stop has no return, mirroring the time.Ticker/time.Timer split.
type deterministicTicker struct {
	*deterministicChron
}

func (t *deterministicTicker) Stop() {
	t.deterministicChron.Stop()
}
