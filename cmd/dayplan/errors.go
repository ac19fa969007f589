package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/dayplan/dayplan"
	"github.com/arthur-debert/dayplan/dayplan/engine"
	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/undo"
	"github.com/arthur-debert/dayplan/types"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "add", "move")
	Cause       string   // The underlying cause (e.g., "task not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}
	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}
	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError creates an error for invalid arguments
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewNotFoundError creates an error for a task id that matched nothing
func NewNotFoundError(operation, id string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("no task matches %q", id),
		Suggestions: suggestions,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
	}
}

// NewBackendError creates an error for engine and gateway failures,
// describing the common sentinels in plain words
func NewBackendError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "operation failed"
	details := ""

	if underlying != nil {
		details = underlying.Error()

		switch {
		case errors.Is(underlying, engine.ErrSyncFailed):
			cause = "the backend rejected the change, it was rolled back"
		case errors.Is(underlying, engine.ErrTaskNotFound), errors.Is(underlying, gateway.ErrNotFound):
			cause = "task not found"
		case errors.Is(underlying, engine.ErrDateMismatch):
			cause = "task is on another day"
		case errors.Is(underlying, engine.ErrUnknownCategory):
			cause = "unknown category"
		case errors.Is(underlying, undo.ErrNothingToUndo):
			cause = "nothing to undo"
		case errors.Is(underlying, dayplan.ErrUnknownBackend):
			cause = "unknown backend"
		case errors.Is(underlying, types.ErrEmptyTitle),
			errors.Is(underlying, types.ErrInvalidPriority),
			errors.Is(underlying, engine.ErrInvalidDate),
			errors.Is(underlying, engine.ErrInvalidRecurrence),
			errors.Is(underlying, engine.ErrEmptyCategory),
			errors.Is(underlying, gateway.ErrInvalidRange):
			cause = "invalid data provided"
		case strings.Contains(strings.ToLower(details), "permission denied"):
			cause = "insufficient permissions to access the database"
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	return NewBackendError(operation, err, suggestions...)
}

// CommonSuggestions are reused across commands
var CommonSuggestions = struct {
	CheckID     string
	CheckRange  string
	CheckDate   string
	CheckConfig string
	CheckDB     string
	RunHelp     string
}{
	CheckID:     "Use 'dayplan list' to see task ids; any unique prefix works",
	CheckRange:  "Use --from/--to to load the days the task is on",
	CheckDate:   "Dates are YYYY-MM-DD, today, tomorrow or yesterday",
	CheckConfig: "Check dayplan.yaml or the DAYPLAN_* environment variables",
	CheckDB:     "Verify --db (json, sqlite) or --dsn (postgres) points to a reachable database",
	RunHelp:     "Run command with --help for usage information",
}
