// Package retry implements the reconnect protocol shared by all event
// watchers: capped exponential backoff between attempts, a bounded number
// of attempts, and cancellation that always wins over a pending wait.
package retry

import "time"

// Config tunes the reconnect behavior. It is passed by value to each
// watcher at spawn time; there is no shared mutable state.
type Config struct {
	// MaxRetries bounds the number of connection attempts per reconnect.
	MaxRetries int
	// BaseBackoff is the delay after the first failed attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration
	// StaleTimeout forces a reconnect when a live stream delivers no
	// events for this long.
	StaleTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:   10,
		BaseBackoff:  time.Second,
		MaxBackoff:   60 * time.Second,
		StaleTimeout: 10 * time.Minute,
	}
}

// BackoffForAttempt returns min(base * 2^attempt, max). The doubling
// saturates at max, so a large attempt number can never overflow and wrap
// back to a small delay.
func (c Config) BackoffForAttempt(attempt int) time.Duration {
	d := c.BaseBackoff
	for i := 0; i < attempt; i++ {
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
		d *= 2
		if d < 0 { // overflowed
			return c.MaxBackoff
		}
	}
	return min(d, c.MaxBackoff)
}
