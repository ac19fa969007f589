package engine

import (
	"errors"

	"github.com/arthur-debert/dayplan/dayplan/taskstore"
)

var (
	// ErrSyncFailed wraps every remote failure reported through Pending.Wait
	ErrSyncFailed = errors.New("sync failed")

	// ErrTaskNotFound is returned when a command names an unknown task
	ErrTaskNotFound = taskstore.ErrTaskNotFound

	// ErrDateMismatch is returned when a move names the wrong source date
	ErrDateMismatch = errors.New("task is not on the given date")

	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD
	ErrInvalidDate = errors.New("invalid date")

	// ErrEmptyCategory is returned when a category name is blank
	ErrEmptyCategory = errors.New("category name must not be empty")

	// ErrUnknownCategory is returned when selecting a name not in the set
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidRecurrence is returned for a non-positive repeat interval
	ErrInvalidRecurrence = errors.New("repeat interval must be at least one day")
)
