package testutil

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/dayplan/dayplan/engine"
	"github.com/arthur-debert/dayplan/types"
)

// HookRecorder records every hook call of an engine
type HookRecorder struct {
	mu         sync.Mutex
	completed  []string
	days       []types.Date
	dayChanges []types.Date
	changes    int
}

// Hooks returns engine hooks that record into r
func (r *HookRecorder) Hooks() engine.Hooks {
	return engine.Hooks{
		TaskCompleted: func(task types.Task) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completed = append(r.completed, task.ID)
		},
		DayCompleted: func(date types.Date) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.days = append(r.days, date)
		},
		StoreChanged: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.changes++
		},
		DayChanged: func(today types.Date) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.dayChanges = append(r.dayChanges, today)
		},
	}
}

// Completed returns the ids passed to TaskCompleted
func (r *HookRecorder) Completed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.completed...)
}

// CompletedDays returns the dates passed to DayCompleted
func (r *HookRecorder) CompletedDays() []types.Date {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Date(nil), r.days...)
}

// DayChanges returns the dates passed to DayChanged
func (r *HookRecorder) DayChanges() []types.Date {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Date(nil), r.dayChanges...)
}

// Changes returns how often StoreChanged ran
func (r *HookRecorder) Changes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes
}

// Reset forgets everything recorded so far
func (r *HookRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed, r.days, r.dayChanges, r.changes = nil, nil, nil, 0
}

// IDs returns the ids of tasks in order
func IDs(tasks []types.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

// AssertDayOrder checks the display order of a day by id
func AssertDayOrder(t *testing.T, eng *engine.Engine, date types.Date, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, IDs(eng.View().Day(date))); diff != "" {
		t.Errorf("order of %s mismatch (-want +got):\n%s", date, diff)
	}
}

// AssertDistinctKeys checks that no two tasks of a partition share a key
func AssertDistinctKeys(t *testing.T, tasks []types.Task) {
	t.Helper()
	seen := make(map[types.PartitionKey]map[float64]string)
	for _, task := range tasks {
		key := task.Partition()
		if seen[key] == nil {
			seen[key] = make(map[float64]string)
		}
		if other, dup := seen[key][task.SortOrder]; dup {
			t.Errorf("tasks %s and %s share sort key %v in %s", other, task.ID, task.SortOrder, key)
		}
		seen[key][task.SortOrder] = task.ID
	}
}

// AssertTasksEqual compares two task lists field by field
func AssertTasksEqual(t *testing.T, want, got []types.Task, context string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("%s: tasks mismatch (-want +got):\n%s", context, diff)
	}
}
