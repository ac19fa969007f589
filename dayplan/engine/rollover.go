package engine

import (
	"context"
	"time"

	"github.com/arthur-debert/dayplan/types"
)

// DefaultRolloverInterval is how often RunDayRollover checks the clock
const DefaultRolloverInterval = time.Minute

// RunDayRollover recomputes today's date every interval and calls
// Hooks.DayChanged when it moved. It blocks until ctx is done.
func (e *Engine) RunDayRollover(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRolloverInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.rollover()
		}
	}
}

// rollover reports whether the day changed
func (e *Engine) rollover() bool {
	today := types.DateOf(e.now())

	e.mu.Lock()
	if today == e.today {
		e.mu.Unlock()
		return false
	}
	e.today = today
	e.mu.Unlock()

	e.logger.Debug("day rollover", "today", today)
	if e.hooks.DayChanged != nil {
		e.hooks.DayChanged(today)
	}
	return true
}
