// Package taskstore holds the in-memory mapping from calendar day to tasks.
// It is the single source of truth for rendering. Display order is never
// stored: every read sorts a day with types.SortForDisplay.
package taskstore

import (
	"errors"
	"fmt"
	"sort"

	"github.com/arthur-debert/dayplan/types"
)

// ErrTaskNotFound is returned when an id is not in the store
var ErrTaskNotFound = errors.New("task not found")

// Store maps each date to the set of tasks on it
type Store struct {
	lockManager *LockManager
	days        map[types.Date]map[string]types.Task
	index       map[string]types.Date
}

// New creates an empty store
func New() *Store {
	return &Store{
		lockManager: NewLockManager(),
		days:        make(map[types.Date]map[string]types.Task),
		index:       make(map[string]types.Date),
	}
}

// Put inserts or replaces a task, moving it between days if its date changed
func (s *Store) Put(task types.Task) {
	_ = s.lockManager.Execute(WriteOperation, func() error {
		s.put(task)
		return nil
	})
}

func (s *Store) put(task types.Task) {
	if prev, ok := s.index[task.ID]; ok && prev != task.Date {
		s.remove(task.ID)
	}
	bucket, ok := s.days[task.Date]
	if !ok {
		bucket = make(map[string]types.Task)
		s.days[task.Date] = bucket
	}
	bucket[task.ID] = task.Clone()
	s.index[task.ID] = task.Date
}

// Remove deletes a task and returns what was removed
func (s *Store) Remove(id string) (types.Task, error) {
	var removed types.Task
	err := s.lockManager.Execute(WriteOperation, func() error {
		t, ok := s.remove(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		removed = t
		return nil
	})
	return removed, err
}

func (s *Store) remove(id string) (types.Task, bool) {
	date, ok := s.index[id]
	if !ok {
		return types.Task{}, false
	}
	t := s.days[date][id]
	delete(s.days[date], id)
	if len(s.days[date]) == 0 {
		delete(s.days, date)
	}
	delete(s.index, id)
	return t, true
}

// Update applies fn to the stored task with the given id.
// fn must not change the task id.
func (s *Store) Update(id string, fn func(*types.Task)) (types.Task, error) {
	var updated types.Task
	err := s.lockManager.Execute(WriteOperation, func() error {
		date, ok := s.index[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		t := s.days[date][id].Clone()
		fn(&t)
		t.ID = id
		s.put(t)
		updated = t.Clone()
		return nil
	})
	return updated, err
}

// Get returns a copy of the task with the given id
func (s *Store) Get(id string) (types.Task, bool) {
	type result struct {
		task types.Task
		ok   bool
	}
	r := read(s.lockManager, func() result {
		date, ok := s.index[id]
		if !ok {
			return result{}
		}
		return result{task: s.days[date][id].Clone(), ok: true}
	})
	return r.task, r.ok
}

// Day returns the tasks of a date in display order
func (s *Store) Day(date types.Date) []types.Task {
	return read(s.lockManager, func() []types.Task {
		return s.day(date)
	})
}

func (s *Store) day(date types.Date) []types.Task {
	bucket := s.days[date]
	out := make([]types.Task, 0, len(bucket))
	for _, t := range bucket {
		out = append(out, t.Clone())
	}
	types.SortForDisplay(out)
	return out
}

// Partition returns the members of a partition in display order
func (s *Store) Partition(key types.PartitionKey) []types.Task {
	return types.PartitionOf(s.Day(key.Date), key)
}

// Dates returns every date that has at least one task, ascending
func (s *Store) Dates() []types.Date {
	return read(s.lockManager, func() []types.Date {
		return s.dates()
	})
}

func (s *Store) dates() []types.Date {
	out := make([]types.Date, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns every task, grouped by ascending date and display order
func (s *Store) All() []types.Task {
	return read(s.lockManager, func() []types.Task {
		var out []types.Task
		for _, d := range s.dates() {
			out = append(out, s.day(d)...)
		}
		return out
	})
}

// Len returns the number of tasks held
func (s *Store) Len() int {
	return read(s.lockManager, func() int {
		return len(s.index)
	})
}

// Where returns every task for which match is true
func (s *Store) Where(match func(types.Task) bool) []types.Task {
	var out []types.Task
	for _, t := range s.All() {
		if match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Replace drops every task and loads tasks in their place
func (s *Store) Replace(tasks []types.Task) {
	_ = s.lockManager.Execute(WriteOperation, func() error {
		s.days = make(map[types.Date]map[string]types.Task)
		s.index = make(map[string]types.Date)
		for _, t := range tasks {
			s.put(t)
		}
		return nil
	})
}

// ReplaceRange drops every day in [from, to] and loads tasks in its place.
// Tasks outside the range are ignored.
func (s *Store) ReplaceRange(from, to types.Date, tasks []types.Task) {
	_ = s.lockManager.Execute(WriteOperation, func() error {
		for d, bucket := range s.days {
			if d < from || d > to {
				continue
			}
			for id := range bucket {
				delete(s.index, id)
			}
			delete(s.days, d)
		}
		for _, t := range tasks {
			if t.Date < from || t.Date > to {
				continue
			}
			s.put(t)
		}
		return nil
	})
}
