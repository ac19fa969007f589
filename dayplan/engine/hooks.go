package engine

import (
	"github.com/arthur-debert/dayplan/types"
)

// Hooks are presentation callbacks. They run outside the engine lock, so
// they may read the View. Nil hooks are skipped.
type Hooks struct {
	// TaskCompleted runs when a task goes from not done to done
	TaskCompleted func(task types.Task)

	// DayCompleted runs once when every task of a day is done. It runs
	// again only after the day became incomplete in between.
	DayCompleted func(date types.Date)

	// StoreChanged runs after every local apply, rollback, load or insert
	StoreChanged func()

	// DayChanged runs when the day rollover sees a new calendar day
	DayChanged func(today types.Date)
}

// events collects hook calls while the engine lock is held
type events struct {
	completed []types.Task
	days      []types.Date
}

// completionEvents diffs the done flags captured in sn against the store
// and updates the celebrated flags of the captured dates.
// Caller holds e.mu.
func (e *Engine) completionEvents(sn Snapshot) events {
	var ev events
	for _, d := range sn.Dates() {
		for _, before := range sn.tasks.Tasks(d) {
			if before.Done {
				continue
			}
			if now, ok := e.state.Tasks.Get(before.ID); ok && now.Done {
				ev.completed = append(ev.completed, now)
			}
		}
	}
	ev.days = e.celebrate(sn.Dates(), true)
	return ev
}

// celebrate updates the per-date flags and returns the dates that just
// became complete. With fire false the flags are only reset.
// Caller holds e.mu.
func (e *Engine) celebrate(dates []types.Date, fire bool) []types.Date {
	var out []types.Date
	for _, d := range dates {
		if !dayComplete(e.state.Tasks.Day(d)) {
			delete(e.celebrated, d)
			continue
		}
		if fire && !e.celebrated[d] {
			e.celebrated[d] = true
			out = append(out, d)
		}
	}
	return out
}

func dayComplete(tasks []types.Task) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if !t.Done {
			return false
		}
	}
	return true
}

func (e *Engine) fire(ev events) {
	if e.hooks.TaskCompleted != nil {
		for _, t := range ev.completed {
			e.hooks.TaskCompleted(t)
		}
	}
	if e.hooks.DayCompleted != nil {
		for _, d := range ev.days {
			e.hooks.DayCompleted(d)
		}
	}
}

func (e *Engine) changed() {
	if e.hooks.StoreChanged != nil {
		e.hooks.StoreChanged()
	}
}
