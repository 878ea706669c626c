package engine

import (
	"sync/atomic"
	"time"
)

// Clock hands out strictly increasing unix-nanosecond timestamps.
// Order timestamps break price ties, so two orders must never share one.
type Clock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewClock creates a clock backed by the wall clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Next returns a timestamp greater than every value returned before.
func (c *Clock) Next() int64 {
	for {
		last := c.last.Load()
		next := c.now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
