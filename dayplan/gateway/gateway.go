// Package gateway defines the contract of the remote task table the engine
// synchronizes with. Implementations live in subpackages (jsonfile, sqlite,
// postgres); Memory is an in-process implementation used for tests and
// scratch sessions.
//
// Every call is scoped by owner. A row owned by someone else is reported as
// ErrNotFound, never touched.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthur-debert/dayplan/types"
)

var (
	// ErrNotFound is returned when no row matches the id and owner
	ErrNotFound = errors.New("task not found")
	// ErrInvalidRange is returned when from is after to
	ErrInvalidRange = errors.New("invalid date range")
)

// Gateway is the remote task table
type Gateway interface {
	// ListTasks returns the owner's tasks with from <= date <= to,
	// ordered by date then sort order
	ListTasks(ctx context.Context, ownerID string, from, to types.Date) ([]types.Task, error)

	// InsertTasks stores drafts and returns them with ids and timestamps
	// assigned, in input order
	InsertTasks(ctx context.Context, drafts []types.TaskDraft) ([]types.Task, error)

	// UpdateTask applies a partial update to one row
	UpdateTask(ctx context.Context, id, ownerID string, patch types.TaskPatch) error

	// DeleteTask removes one row
	DeleteTask(ctx context.Context, id, ownerID string) error

	// BulkUpdateCategory sets category = newCategory on every row of the
	// owner whose category is oldCategory. A nil newCategory clears it.
	BulkUpdateCategory(ctx context.Context, ownerID, oldCategory string, newCategory *string) error
}

// ValidateRange checks the arguments of ListTasks
func ValidateRange(ownerID string, from, to types.Date) error {
	if ownerID == "" {
		return types.ErrMissingOwner
	}
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %s..%s", ErrInvalidRange, from, to)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	return nil
}

// ValidateDrafts checks every draft of an insert batch
func ValidateDrafts(drafts []types.TaskDraft) error {
	for i, d := range drafts {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("draft %d: %w", i, err)
		}
	}
	return nil
}
