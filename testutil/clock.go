package testutil

import (
	"sync"
	"time"

	"github.com/arthur-debert/dayplan/dayplan/undo"
)

// Clock is a manual clock. Timers scheduled through AfterFunc only fire
// when Advance moves past their deadline.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock    *Clock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (mt *manualTimer) Stop() bool {
	mt.clock.mu.Lock()
	defer mt.clock.mu.Unlock()
	was := !mt.stopped && !mt.fired
	mt.stopped = true
	return was
}

// NewClock creates a clock set to start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current manual time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn at now+d
func (c *Clock) AfterFunc(d time.Duration, fn func()) undo.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := &manualTimer{clock: c, deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, mt)
	return mt
}

// Advance moves the clock and fires every due timer, outside the lock
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, mt := range c.timers {
		if !mt.stopped && !mt.fired && !mt.deadline.After(c.now) {
			mt.fired = true
			due = append(due, mt)
		}
	}
	c.mu.Unlock()

	for _, mt := range due {
		mt.fn()
	}
}

// Set jumps to t without firing timers
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
