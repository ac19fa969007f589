package ordering

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/arthur-debert/dayplan/types"
)

// Key spacing constants
const (
	DefaultBase float64 = 1000
	Increment   float64 = 1000
	Spacing     float64 = 1000
)

var (
	// ErrMovedNotFound is returned when the moved task is not in the partition
	ErrMovedNotFound = errors.New("moved task not in partition")
	// ErrReferenceNotFound is returned when the reference task is not in the partition
	ErrReferenceNotFound = errors.New("reference task not in partition")
)

// Placement is the outcome of a reorder
type Placement struct {
	// Key is the new sort key of the moved task
	Key float64

	// Renormalized holds new keys for every other task in the partition
	// when renormalization was needed. Empty otherwise.
	Renormalized map[string]float64
}

// Changes returns every key change the placement implies, moved task included
func (p Placement) Changes(movedID string) map[string]float64 {
	changes := make(map[string]float64, len(p.Renormalized)+1)
	for id, key := range p.Renormalized {
		changes[id] = key
	}
	changes[movedID] = p.Key
	return changes
}

// Allocator computes sort keys
type Allocator struct {
	now func() time.Time
}

// Option configures an Allocator
type Option func(*Allocator)

// WithClock sets the clock used for append keys
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// New creates an allocator using time.Now unless overridden
func New(opts ...Option) *Allocator {
	a := &Allocator{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AppendKey returns a key that sorts after every task in partition
func (a *Allocator) AppendKey(partition []types.Task) float64 {
	key := float64(a.now().UnixMilli())
	for _, t := range partition {
		if t.SortOrder >= key {
			key = math.Floor(t.SortOrder) + 1
		}
	}
	return key
}

// Place computes the key that puts movedID directly above or below
// referenceID. partition must hold the members of a single partition;
// it does not need to be sorted.
func (a *Allocator) Place(partition []types.Task, movedID, referenceID string, pos types.Position) (Placement, error) {
	ordered := sortedCopy(partition)

	if indexOf(ordered, movedID) < 0 {
		return Placement{}, fmt.Errorf("%w: %s", ErrMovedNotFound, movedID)
	}

	others := without(ordered, movedID)
	refIdx := indexOf(others, referenceID)
	if refIdx < 0 {
		return Placement{}, fmt.Errorf("%w: %s", ErrReferenceNotFound, referenceID)
	}

	insertAt := refIdx
	if pos == types.Below {
		insertAt = refIdx + 1
	}

	if key, ok := keyBetween(others, insertAt); ok {
		return Placement{Key: key}, nil
	}

	// No room between the neighbours: spread the whole partition out and
	// retry against the new keys.
	renormalized := Renormalize(ordered)
	for i := range others {
		others[i].SortOrder = renormalized[others[i].ID]
	}
	key, ok := keyBetween(others, insertAt)
	if !ok {
		// Unreachable with Spacing > 2; kept as an explicit failure.
		return Placement{}, fmt.Errorf("no key available after renormalization at index %d", insertAt)
	}

	delete(renormalized, movedID)
	return Placement{Key: key, Renormalized: renormalized}, nil
}

// Renormalize assigns evenly spaced keys to a partition in display order.
// The returned map covers every task.
func Renormalize(partition []types.Task) map[string]float64 {
	ordered := sortedCopy(partition)
	keys := make(map[string]float64, len(ordered))
	for i, t := range ordered {
		keys[t.ID] = float64(i+1) * Spacing
	}
	return keys
}

// NeedsRenormalization reports whether any two adjacent keys in the
// display-ordered partition are too close for an integer midpoint
func NeedsRenormalization(partition []types.Task) bool {
	ordered := sortedCopy(partition)
	for i := 1; i < len(ordered); i++ {
		if ordered[i].SortOrder-ordered[i-1].SortOrder <= 1 {
			return true
		}
	}
	return false
}

// keyBetween picks a key for insertion at idx in list. ok is false when
// both neighbours exist but have no integer midpoint.
func keyBetween(list []types.Task, idx int) (float64, bool) {
	hasPrev := idx > 0
	hasNext := idx < len(list)

	switch {
	case !hasPrev && !hasNext:
		return DefaultBase, true
	case !hasNext:
		return list[idx-1].SortOrder + Increment, true
	case !hasPrev:
		return list[idx].SortOrder - Increment, true
	}

	prev, next := list[idx-1].SortOrder, list[idx].SortOrder
	if next-prev <= 1 {
		return 0, false
	}
	// Fractional keys written by other clients can leave a gap above 1
	// whose floored midpoint still collides with prev.
	mid := math.Floor((prev + next) / 2)
	if mid <= prev || mid >= next {
		return 0, false
	}
	return mid, true
}

func sortedCopy(tasks []types.Task) []types.Task {
	out := make([]types.Task, len(tasks))
	copy(out, tasks)
	types.SortForDisplay(out)
	return out
}

func without(tasks []types.Task, id string) []types.Task {
	out := make([]types.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func indexOf(tasks []types.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
