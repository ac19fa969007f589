package engine

import (
	"github.com/arthur-debert/dayplan/dayplan/undo"
	"github.com/arthur-debert/dayplan/types"
)

// View is the read-only surface handed to UIs. Every method returns
// copies.
type View struct {
	e *Engine
}

// Dates returns every day that has tasks, ascending
func (v View) Dates() []types.Date {
	return v.e.state.Tasks.Dates()
}

// Day returns a day's tasks in display order
func (v View) Day(date types.Date) []types.Task {
	return v.e.state.Tasks.Day(date)
}

// Task returns one task
func (v View) Task(id string) (types.Task, bool) {
	return v.e.state.Tasks.Get(id)
}

// Tasks returns every task, by date then display order
func (v View) Tasks() []types.Task {
	return v.e.state.Tasks.All()
}

// Categories returns the category set in insertion order
func (v View) Categories() []string {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	return v.e.state.Categories.Names()
}

// SelectedCategory returns the selected category, if any
func (v View) SelectedCategory() (string, bool) {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	return v.e.state.Selected, v.e.state.Selected != ""
}

// PendingUndo returns the live undo entry, if any
func (v View) PendingUndo() (undo.Entry, bool) {
	return v.e.pendingUndo()
}

// Today returns the day the engine considers current
func (v View) Today() types.Date {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	return v.e.today
}

// Celebrated reports whether a day's completion was already celebrated
func (v View) Celebrated(date types.Date) bool {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	return v.e.celebrated[date]
}
