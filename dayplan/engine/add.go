package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/arthur-debert/dayplan/types"
)

// MaxOccurrences caps how many rows one recurring AddTask materializes
const MaxOccurrences = 366

// AddTask inserts a task for the engine's owner and returns the stored
// rows. With RepeatEveryDays and RepeatUntil set, one row is created for
// every occurrence up to RepeatUntil, all in a single insert.
//
// Adding is not optimistic: ids come from the backend, so the store only
// changes after the insert succeeded.
func (e *Engine) AddTask(ctx context.Context, draft types.TaskDraft) ([]types.Task, error) {
	draft.OwnerID = e.owner
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Priority == 0 {
		draft.Priority = types.PriorityNormal
	}
	if draft.Category != nil {
		if name := strings.TrimSpace(*draft.Category); name != "" {
			draft.Category = types.StringPtr(name)
		} else {
			draft.Category = nil
		}
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	drafts, err := expandRecurrence(draft)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	for i := range drafts {
		key := types.PartitionKey{Date: drafts[i].Date, Done: drafts[i].Done, Priority: drafts[i].Priority}
		drafts[i].SortOrder = e.alloc.AppendKey(e.state.Tasks.Partition(key))
	}
	e.mu.Unlock()

	return e.insert(ctx, drafts)
}

// expandRecurrence returns the draft itself followed by its repeats
func expandRecurrence(draft types.TaskDraft) ([]types.TaskDraft, error) {
	if draft.RepeatEveryDays == nil {
		return []types.TaskDraft{draft}, nil
	}
	every := *draft.RepeatEveryDays
	if every < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRecurrence, every)
	}
	if draft.RepeatUntil == nil {
		return []types.TaskDraft{draft}, nil
	}
	until := *draft.RepeatUntil
	if !until.Valid() {
		return nil, fmt.Errorf("%w: repeat until %q", ErrInvalidDate, until)
	}

	drafts := []types.TaskDraft{draft}
	for date := draft.Date; len(drafts) < MaxOccurrences; {
		next, err := date.AddDays(every)
		if err != nil {
			return nil, err
		}
		if until.Before(next) {
			break
		}
		sibling := draft
		sibling.Date = next
		drafts = append(drafts, sibling)
		date = next
	}
	return drafts, nil
}

// insert stores drafts remotely, then merges the returned rows
func (e *Engine) insert(ctx context.Context, drafts []types.TaskDraft) ([]types.Task, error) {
	rows, err := e.gw.InsertTasks(ctx, drafts)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tasks: %w", err)
	}

	dates := make([]types.Date, 0, len(rows))
	e.mu.Lock()
	for _, row := range rows {
		e.state.Tasks.Put(row)
		if row.Category != nil {
			e.state.Categories.Add(*row.Category)
		}
		dates = append(dates, row.Date)
	}
	e.markLoaded(dates)
	e.mu.Unlock()

	e.logger.Debug("tasks inserted", "owner", e.owner, "count", len(rows))
	e.changed()
	return rows, nil
}
