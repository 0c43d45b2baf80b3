package app

import "time"

// DefaultWarningThreshold is how much remaining time triggers the low-time warning.
const DefaultWarningThreshold = 5 * time.Minute

// ClockReading is one observation of a session clock.
type ClockReading struct {
	Elapsed   time.Duration
	Remaining time.Duration // zero when untimed
	Timed     bool
	Warn      bool // set on the single observation that crosses the threshold
	Expired   bool // set on the single observation that reaches zero
}

// ElapsedSeconds truncates Elapsed to whole seconds.
func (r ClockReading) ElapsedSeconds() int64 {
	return int64(r.Elapsed / time.Second)
}

// RemainingSeconds truncates Remaining to whole seconds.
func (r ClockReading) RemainingSeconds() int64 {
	return int64(r.Remaining / time.Second)
}

// Clock does the deadline arithmetic for one session. Elapsed time is always
// derived from the session's persisted start, so a resumed session keeps its
// original deadline.
type Clock struct {
	limit     time.Duration
	threshold time.Duration
	warned    bool
	expired   bool
}

// NewClock creates a clock for limit (zero means untimed).
func NewClock(limit, threshold time.Duration) *Clock {
	if threshold <= 0 {
		threshold = DefaultWarningThreshold
	}
	return &Clock{limit: limit, threshold: threshold}
}

// Read computes elapsed and remaining time without touching the one-shot latches.
func (c *Clock) Read(start, now time.Time) ClockReading {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	if c.limit <= 0 {
		return ClockReading{Elapsed: elapsed}
	}
	if elapsed > c.limit {
		elapsed = c.limit
	}
	return ClockReading{
		Elapsed:   elapsed,
		Remaining: c.limit - elapsed,
		Timed:     true,
	}
}

// Observe is Read plus the one-shot warning and expiry signals. The warning
// fires on the first observation at or under the threshold, including the first
// tick after resuming a session that is already past it.
func (c *Clock) Observe(start, now time.Time) ClockReading {
	r := c.Read(start, now)
	if !r.Timed {
		return r
	}
	if r.Remaining <= 0 {
		if !c.expired {
			c.expired = true
			r.Expired = true
		}
		return r
	}
	if !c.warned && r.Remaining <= c.threshold {
		c.warned = true
		r.Warn = true
	}
	return r
}
