package engine

import (
	"fmt"

	"github.com/arthur-debert/dayplan/types"
)

// DropTarget is where a dragged task was released
type DropTarget struct {
	// Date is the day the task was dropped on
	Date types.Date

	// OverTaskID is the task under the pointer, if any
	OverTaskID string

	// Position is Above or Below OverTaskID
	Position types.Position
}

// HandleDrop dispatches a validated drag payload.
//
// A move payload moves the task to target.Date, placed next to
// target.OverTaskID when that task shares its partition there, appended
// otherwise. A reorder payload reorders within the source day; a drop on
// another day or without a task under the pointer does nothing.
func (e *Engine) HandleDrop(payload types.DragPayload, target DropTarget) (*Pending, error) {
	if payload == nil {
		return nil, types.ErrInvalidPayload
	}
	pos := target.Position
	if pos == "" {
		pos = types.Above
	}

	switch p := payload.(type) {
	case types.MovePayload:
		return e.moveTask(p.FromDate, target.Date, p.TaskID, target.OverTaskID, pos)
	case types.ReorderPayload:
		if target.OverTaskID == "" || (target.Date != "" && target.Date != p.FromDate) {
			return resolved("reorder", nil), nil
		}
		t, ok := e.state.Tasks.Get(p.TaskID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, p.TaskID)
		}
		if t.Date != p.FromDate {
			return nil, fmt.Errorf("%w: %s is on %s, not %s", ErrDateMismatch, p.TaskID, t.Date, p.FromDate)
		}
		return e.ReorderTask(p.TaskID, target.OverTaskID, pos)
	default:
		return nil, fmt.Errorf("%w: kind %q", types.ErrInvalidPayload, payload.Kind())
	}
}
