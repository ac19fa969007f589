package engine

import (
	"context"
	"fmt"

	"github.com/arthur-debert/dayplan/dayplan/undo"
	"github.com/arthur-debert/dayplan/types"
)

// ToggleTask flips the done flag of a task
func (e *Engine) ToggleTask(id string) (*Pending, error) {
	return e.run(&toggleMutation{base: base{owner: e.owner}, alloc: e.alloc, id: id})
}

// EditTask applies patch to a task. An empty patch only checks that the
// task exists.
func (e *Engine) EditTask(id string, patch types.TaskPatch) (*Pending, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		if _, ok := e.state.Tasks.Get(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		return resolved("edit", nil), nil
	}
	if patch.SetCategory && patch.Category != nil && *patch.Category == "" {
		patch.Category = nil
	}
	return e.run(&editMutation{base: base{owner: e.owner}, alloc: e.alloc, id: id, patch: patch})
}

// DeleteTask removes a task. Once the backend confirmed, the deletion can
// be undone until the undo entry expires.
func (e *Engine) DeleteTask(id string) (*Pending, error) {
	return e.run(&deleteMutation{base: base{owner: e.owner}, id: id})
}

// MoveTask moves a task from one day to another, appending it to its
// partition there. Moving to the same day does nothing.
func (e *Engine) MoveTask(fromDate, toDate types.Date, id string) (*Pending, error) {
	return e.moveTask(fromDate, toDate, id, "", types.Below)
}

func (e *Engine) moveTask(fromDate, toDate types.Date, id, over string, pos types.Position) (*Pending, error) {
	if !toDate.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, toDate)
	}
	t, ok := e.state.Tasks.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if t.Date != fromDate {
		return nil, fmt.Errorf("%w: %s is on %s, not %s", ErrDateMismatch, id, t.Date, fromDate)
	}
	if fromDate == toDate {
		return resolved("move", nil), nil
	}
	return e.run(&moveMutation{
		base:  base{owner: e.owner},
		alloc: e.alloc,
		from:  fromDate,
		to:    toDate,
		id:    id,
		over:  over,
		pos:   pos,
	})
}

// ReorderTask places taskID directly above or below overTaskID.
// Reordering a task onto itself or onto a task of another partition
// (different date, done flag or priority) does nothing.
func (e *Engine) ReorderTask(taskID, overTaskID string, pos types.Position) (*Pending, error) {
	if pos != types.Above && pos != types.Below {
		return nil, fmt.Errorf("invalid position %q", pos)
	}
	t, ok := e.state.Tasks.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	over, ok := e.state.Tasks.Get(overTaskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, overTaskID)
	}
	if taskID == overTaskID {
		return resolved("reorder", nil), nil
	}
	if t.Partition() != over.Partition() {
		e.logger.Debug("cross-partition reorder ignored",
			"task", taskID, "from", t.Partition().String(), "over", over.Partition().String())
		return resolved("reorder", nil), nil
	}
	return e.run(&reorderMutation{base: base{owner: e.owner}, alloc: e.alloc, id: taskID, over: overTaskID, pos: pos})
}

// Undo runs the pending undo action, if any
func (e *Engine) Undo(ctx context.Context) error {
	return e.undo.Invoke(ctx)
}

// DismissUndo discards the pending undo action. Returns false when there
// was none.
func (e *Engine) DismissUndo() bool {
	return e.undo.Dismiss()
}

// armTaskUndo stages the re-insert of a deleted task
func (e *Engine) armTaskUndo(removed types.Task) {
	message := fmt.Sprintf("Deleted %q", removed.Title)
	e.undo.Arm(message, func(ctx context.Context) error {
		draft := removed.Draft()
		draft.OwnerID = e.owner

		e.mu.Lock()
		for _, t := range e.state.Tasks.Partition(removed.Partition()) {
			if t.SortOrder == draft.SortOrder {
				draft.SortOrder = e.alloc.AppendKey(e.state.Tasks.Partition(removed.Partition()))
				break
			}
		}
		e.mu.Unlock()

		if _, err := e.insert(ctx, []types.TaskDraft{draft}); err != nil {
			return fmt.Errorf("%w: restore task: %w", ErrSyncFailed, err)
		}
		return nil
	})
}

// pendingUndo exposes the live undo entry to the View
func (e *Engine) pendingUndo() (undo.Entry, bool) {
	return e.undo.Pending()
}
