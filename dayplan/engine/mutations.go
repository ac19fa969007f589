package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/ordering"
	"github.com/arthur-debert/dayplan/types"
)

// maxParallelSyncs caps the concurrent UpdateTask calls of one batch
const maxParallelSyncs = 8

type base struct {
	owner string
}

func (base) Restore(st *State, sn Snapshot) {
	restoreSnapshot(st, sn)
}

func lookup(st *State, id string) (types.Task, error) {
	t, ok := st.Tasks.Get(id)
	if !ok {
		return types.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// dateOf returns the date of id, or nothing when the task is unknown
func dateOf(st *State, id string) []types.Date {
	if t, ok := st.Tasks.Get(id); ok {
		return []types.Date{t.Date}
	}
	return nil
}

// applyKeys writes new sort keys to the store
func applyKeys(st *State, keys map[string]float64) error {
	for id, key := range keys {
		key := key
		if _, err := st.Tasks.Update(id, func(t *types.Task) { t.SortOrder = key }); err != nil {
			return err
		}
	}
	return nil
}

// keyPatches turns sort key changes into one patch per task
func keyPatches(keys map[string]float64) map[string]types.TaskPatch {
	patches := make(map[string]types.TaskPatch, len(keys))
	for id, key := range keys {
		key := key
		patches[id] = types.TaskPatch{SortOrder: &key}
	}
	return patches
}

// syncPatches issues one UpdateTask per entry concurrently
func syncPatches(ctx context.Context, gw gateway.Gateway, owner string, patches map[string]types.TaskPatch) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSyncs)
	for id, patch := range patches {
		g.Go(func() error {
			return gw.UpdateTask(gctx, id, owner, patch)
		})
	}
	return g.Wait()
}

// toggleMutation flips the done flag. The task joins the other done
// partition, so it gets an append key there.
type toggleMutation struct {
	base
	alloc *ordering.Allocator
	id    string
	patch types.TaskPatch
}

func (m *toggleMutation) Name() string { return "toggle" }

func (m *toggleMutation) Snapshot(st *State) Snapshot {
	return snapshotDates(st, dateOf(st, m.id)...)
}

func (m *toggleMutation) Apply(st *State) error {
	t, err := lookup(st, m.id)
	if err != nil {
		return err
	}
	done := !t.Done
	target := types.PartitionKey{Date: t.Date, Done: done, Priority: t.Priority}
	key := m.alloc.AppendKey(st.Tasks.Partition(target))
	m.patch = types.TaskPatch{Done: &done, SortOrder: &key}
	_, err = st.Tasks.Update(m.id, m.patch.Apply)
	return err
}

func (m *toggleMutation) Sync(ctx context.Context, gw gateway.Gateway) error {
	return gw.UpdateTask(ctx, m.id, m.owner, m.patch)
}

// editMutation applies a field patch. A patch that changes the partition
// without an explicit sort key appends the task to its new partition.
type editMutation struct {
	base
	alloc *ordering.Allocator
	id    string
	patch types.TaskPatch
}

func (m *editMutation) Name() string { return "edit" }

func (m *editMutation) Snapshot(st *State) Snapshot {
	dates := dateOf(st, m.id)
	if m.patch.Date != nil {
		dates = append(dates, *m.patch.Date)
	}
	if m.patch.SetCategory && m.patch.Category != nil {
		return snapshotCatalog(st, dates...)
	}
	return snapshotDates(st, dates...)
}

func (m *editMutation) Apply(st *State) error {
	t, err := lookup(st, m.id)
	if err != nil {
		return err
	}
	updated := t.Clone()
	m.patch.Apply(&updated)
	if m.patch.SortOrder == nil && updated.Partition() != t.Partition() {
		key := m.alloc.AppendKey(st.Tasks.Partition(updated.Partition()))
		m.patch.SortOrder = &key
	}
	if _, err := st.Tasks.Update(m.id, m.patch.Apply); err != nil {
		return err
	}
	if m.patch.SetCategory && m.patch.Category != nil {
		st.Categories.Add(*m.patch.Category)
	}
	return nil
}

func (m *editMutation) Sync(ctx context.Context, gw gateway.Gateway) error {
	return gw.UpdateTask(ctx, m.id, m.owner, m.patch)
}

// deleteMutation removes a task; once confirmed it arms undo with a
// re-insert of the removed copy
type deleteMutation struct {
	base
	id      string
	removed types.Task
}

func (m *deleteMutation) Name() string { return "delete" }

func (m *deleteMutation) Snapshot(st *State) Snapshot {
	return snapshotDates(st, dateOf(st, m.id)...)
}

func (m *deleteMutation) Apply(st *State) error {
	removed, err := st.Tasks.Remove(m.id)
	if err != nil {
		return err
	}
	m.removed = removed
	return nil
}

func (m *deleteMutation) Sync(ctx context.Context, gw gateway.Gateway) error {
	return gw.DeleteTask(ctx, m.id, m.owner)
}

func (m *deleteMutation) confirmed(e *Engine) {
	e.armTaskUndo(m.removed)
}

// moveMutation changes the date of a task. Without a reference task the
// task is appended to its partition on the new date; with one it is
// placed above or below it when both share a partition.
type moveMutation struct {
	base
	alloc *ordering.Allocator
	from  types.Date
	to    types.Date
	id    string
	over  string
	pos   types.Position

	patch        types.TaskPatch
	renormalized map[string]float64
}

func (m *moveMutation) Name() string { return "move" }

func (m *moveMutation) Snapshot(st *State) Snapshot {
	return snapshotDates(st, m.from, m.to)
}

func (m *moveMutation) Apply(st *State) error {
	t, err := lookup(st, m.id)
	if err != nil {
		return err
	}
	if t.Date != m.from {
		return fmt.Errorf("%w: %s is on %s, not %s", ErrDateMismatch, m.id, t.Date, m.from)
	}

	moved := t.Clone()
	moved.Date = m.to
	partition := st.Tasks.Partition(moved.Partition())

	key := m.alloc.AppendKey(partition)
	if m.over != "" && containsTask(partition, m.over) {
		placement, err := m.alloc.Place(append(partition, moved), m.id, m.over, m.pos)
		if err != nil {
			return err
		}
		key = placement.Key
		m.renormalized = placement.Renormalized
	}

	to := m.to
	m.patch = types.TaskPatch{Date: &to, SortOrder: &key}
	if _, err := st.Tasks.Update(m.id, m.patch.Apply); err != nil {
		return err
	}
	return applyKeys(st, m.renormalized)
}

func (m *moveMutation) Sync(ctx context.Context, gw gateway.Gateway) error {
	patches := keyPatches(m.renormalized)
	patches[m.id] = m.patch
	return syncPatches(ctx, gw, m.owner, patches)
}

// reorderMutation places a task above or below another of its partition.
// If the two no longer share a partition when applied it does nothing.
type reorderMutation struct {
	base
	alloc *ordering.Allocator
	id    string
	over  string
	pos   types.Position

	changes      map[string]float64
	renormalized bool
}

func (m *reorderMutation) Name() string { return "reorder" }

func (m *reorderMutation) Snapshot(st *State) Snapshot {
	return snapshotDates(st, dateOf(st, m.id)...)
}

func (m *reorderMutation) Apply(st *State) error {
	t, err := lookup(st, m.id)
	if err != nil {
		return err
	}
	ref, err := lookup(st, m.over)
	if err != nil {
		return err
	}
	if t.Partition() != ref.Partition() {
		return nil
	}

	placement, err := m.alloc.Place(st.Tasks.Partition(t.Partition()), m.id, m.over, m.pos)
	if err != nil {
		return err
	}
	m.changes = placement.Changes(m.id)
	m.renormalized = len(placement.Renormalized) > 0
	return applyKeys(st, m.changes)
}

func (m *reorderMutation) Sync(ctx context.Context, gw gateway.Gateway) error {
	if len(m.changes) == 0 {
		return nil
	}
	return syncPatches(ctx, gw, m.owner, keyPatches(m.changes))
}

func containsTask(tasks []types.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}
