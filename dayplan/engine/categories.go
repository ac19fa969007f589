package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/types"
)

// AddCategory adds a name to the category set without touching any task.
// Adding an existing name is a no-op.
func (e *Engine) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCategory
	}
	e.mu.Lock()
	added := e.state.Categories.Add(name)
	e.mu.Unlock()
	if added {
		e.changed()
	}
	return nil
}

// SelectCategory sets the selected category; "" clears the selection
func (e *Engine) SelectCategory(name string) error {
	e.mu.Lock()
	if name != "" && !e.state.Categories.Contains(name) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	e.state.Selected = name
	e.mu.Unlock()
	e.changed()
	return nil
}

// RenameCategory renames from to to on every task and in the category
// set. Renaming onto an existing name merges the two. Equal or empty
// names do nothing.
func (e *Engine) RenameCategory(from, to string) (*Pending, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" || from == to {
		return resolved("rename-category", nil), nil
	}
	return e.run(&renameCategoryMutation{base: base{owner: e.owner}, from: from, to: to})
}

// DeleteCategory clears name from every task and removes it from the set.
// Once confirmed the deletion can be undone, restoring the category on
// exactly the tasks that had it.
func (e *Engine) DeleteCategory(name string) (*Pending, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyCategory
	}
	return e.run(&deleteCategoryMutation{base: base{owner: e.owner}, name: name})
}

// setCategory sets the category of ids in the store and returns the ids
// that were changed
func setCategory(st *State, ids []string, category *string) ([]string, error) {
	changed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := st.Tasks.Get(id); !ok {
			continue
		}
		patch := types.TaskPatch{SetCategory: true, Category: category}
		if _, err := st.Tasks.Update(id, patch.Apply); err != nil {
			return nil, err
		}
		changed = append(changed, id)
	}
	return changed, nil
}

func idsWithCategory(st *State, name string) []string {
	var ids []string
	for _, t := range st.Tasks.Where(func(t types.Task) bool { return t.HasCategory(name) }) {
		ids = append(ids, t.ID)
	}
	return ids
}

// datesOf returns the dates holding ids; unknown ids are skipped
func datesOf(st *State, ids []string) []types.Date {
	var dates []types.Date
	for _, id := range ids {
		dates = append(dates, dateOf(st, id)...)
	}
	return dates
}

type renameCategoryMutation struct {
	base
	from string
	to   string
}

func (m *renameCategoryMutation) Name() string { return "rename-category" }

func (m *renameCategoryMutation) Snapshot(st *State) Snapshot {
	return snapshotCatalog(st, datesOf(st, idsWithCategory(st, m.from))...)
}

func (m *renameCategoryMutation) Apply(st *State) error {
	to := m.to
	if _, err := setCategory(st, idsWithCategory(st, m.from), &to); err != nil {
		return err
	}
	st.Categories.Rename(m.from, m.to)
	if st.Selected == m.from {
		st.Selected = m.to
	}
	return nil
}

func (m *renameCategoryMutation) Sync(ctx context.Context, gw gateway.Gateway) error {
	to := m.to
	return gw.BulkUpdateCategory(ctx, m.owner, m.from, &to)
}

type deleteCategoryMutation struct {
	base
	name     string
	affected []string
}

func (m *deleteCategoryMutation) Name() string { return "delete-category" }

func (m *deleteCategoryMutation) Snapshot(st *State) Snapshot {
	return snapshotCatalog(st, datesOf(st, idsWithCategory(st, m.name))...)
}

func (m *deleteCategoryMutation) Apply(st *State) error {
	affected, err := setCategory(st, idsWithCategory(st, m.name), nil)
	if err != nil {
		return err
	}
	m.affected = affected
	st.Categories.Remove(m.name)
	if st.Selected == m.name {
		st.Selected = ""
	}
	return nil
}

func (m *deleteCategoryMutation) Sync(ctx context.Context, gw gateway.Gateway) error {
	return gw.BulkUpdateCategory(ctx, m.owner, m.name, nil)
}

func (m *deleteCategoryMutation) confirmed(e *Engine) {
	name, affected := m.name, m.affected
	e.undo.Arm(fmt.Sprintf("Deleted category %q", name), func(ctx context.Context) error {
		p, err := e.run(&restoreCategoryMutation{base: base{owner: e.owner}, name: name, ids: affected})
		if err != nil {
			return err
		}
		return p.Wait()
	})
}

// restoreCategoryMutation is the undo of a category delete: it puts name
// back on the given tasks, one UpdateTask each, and re-adds it to the set.
// Tasks deleted since are skipped.
type restoreCategoryMutation struct {
	base
	name     string
	ids      []string
	restored []string
}

func (m *restoreCategoryMutation) Name() string { return "restore-category" }

func (m *restoreCategoryMutation) Snapshot(st *State) Snapshot {
	return snapshotCatalog(st, datesOf(st, m.ids)...)
}

func (m *restoreCategoryMutation) Apply(st *State) error {
	name := m.name
	restored, err := setCategory(st, m.ids, &name)
	if err != nil {
		return err
	}
	m.restored = restored
	st.Categories.Add(m.name)
	return nil
}

func (m *restoreCategoryMutation) Sync(ctx context.Context, gw gateway.Gateway) error {
	patches := make(map[string]types.TaskPatch, len(m.restored))
	for _, id := range m.restored {
		name := m.name
		patches[id] = types.TaskPatch{SetCategory: true, Category: &name}
	}
	return syncPatches(ctx, gw, m.owner, patches)
}
