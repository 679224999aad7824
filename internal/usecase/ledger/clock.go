package ledger

import (
	"sync"
	"time"
)

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// monotonicClock never reports a time earlier than one it already returned,
// so reset times cannot move backwards when the wall clock is stepped.
type monotonicClock struct {
	mu    sync.Mutex
	inner Clock
	last  time.Time
}

func newMonotonicClock(inner Clock) *monotonicClock {
	return &monotonicClock{inner: inner}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.inner.Now()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}
