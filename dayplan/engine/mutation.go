package engine

import (
	"context"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/taskstore"
	"github.com/arthur-debert/dayplan/types"
)

// State is everything a mutation may change locally
type State struct {
	Tasks      *taskstore.Store
	Categories *types.CategorySet
	Selected   string
}

// Snapshot is the pre-mutation copy of the state a mutation touches
type Snapshot struct {
	tasks      taskstore.Snapshot
	categories *types.CategorySet
	selected   string
	catalog    bool

	// touched lists the task ids the mutation wrote; set right after Apply
	touched []string
}

// Dates returns the dates captured by the snapshot
func (sn Snapshot) Dates() []types.Date {
	return sn.tasks.Dates()
}

// snapshotDates captures the task lists of dates
func snapshotDates(st *State, dates ...types.Date) Snapshot {
	return Snapshot{tasks: st.Tasks.Snapshot(dates...)}
}

// snapshotCatalog captures dates plus the category set and selection
func snapshotCatalog(st *State, dates ...types.Date) Snapshot {
	return Snapshot{
		tasks:      st.Tasks.Snapshot(dates...),
		categories: st.Categories.Clone(),
		selected:   st.Selected,
		catalog:    true,
	}
}

// recordTouched notes which rows the mutation just wrote. Caller holds
// the engine lock, between Apply and any other write.
func recordTouched(st *State, sn *Snapshot) {
	sn.touched = st.Tasks.Changes(sn.tasks)
}

// restoreSnapshot puts back the rows the mutation wrote. Rows written by
// other mutations since, even on the same day, are kept. The category set
// keeps every name still in use.
func restoreSnapshot(st *State, sn Snapshot) {
	st.Tasks.RestoreRows(sn.tasks, sn.touched)
	if sn.catalog {
		st.Categories = sn.categories.Clone()
		for _, name := range types.CategoriesOf(st.Tasks.All()) {
			st.Categories.Add(name)
		}
		st.Selected = sn.selected
	}
}

// Mutation is one optimistic command.
//
// Snapshot and Apply run under the engine lock, in that order. Sync runs
// afterwards on its own goroutine; when it fails Restore runs under the
// engine lock with the snapshot taken before Apply.
type Mutation interface {
	Name() string
	Snapshot(st *State) Snapshot
	Apply(st *State) error
	Restore(st *State, sn Snapshot)
	Sync(ctx context.Context, gw gateway.Gateway) error
}

// confirmer is implemented by mutations with work to do once the remote
// call succeeded, such as arming undo
type confirmer interface {
	confirmed(e *Engine)
}
