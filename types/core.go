package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Priority partitions a day's tasks for ordering purposes
type Priority int

const (
	// PriorityNormal is the default priority
	PriorityNormal Priority = 1
	// PriorityHigh sorts above normal tasks
	PriorityHigh Priority = 2
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority accepts "normal"/"high" or "1"/"2"
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "normal":
		return PriorityNormal, nil
	case "2", "high":
		return PriorityHigh, nil
	}
	return 0, fmt.Errorf("invalid priority %q (use normal or high)", s)
}

// Validation errors shared by drafts and patches
var (
	ErrEmptyTitle      = errors.New("title must not be empty")
	ErrInvalidPriority = errors.New("priority must be 1 (normal) or 2 (high)")
	ErrMissingOwner    = errors.New("owner id is required")
)

// Task is one user-visible to-do item attached to a calendar day
type Task struct {
	ID              string    `json:"id" yaml:"id"`
	OwnerID         string    `json:"owner_id" yaml:"owner_id"`
	Date            Date      `json:"date" yaml:"date"`
	Title           string    `json:"title" yaml:"title"`
	Category        *string   `json:"category" yaml:"category"`
	Done            bool      `json:"done" yaml:"done"`
	Priority        Priority  `json:"priority" yaml:"priority"`
	RepeatEveryDays *int      `json:"repeat_every_days" yaml:"repeat_every_days"`
	RepeatUntil     *Date     `json:"repeat_until" yaml:"repeat_until"`
	SortOrder       float64   `json:"sort_order" yaml:"sort_order"`
	Notes           *string   `json:"notes" yaml:"notes"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// CategoryName returns the category or "" when uncategorized
func (t Task) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// HasCategory reports whether the task belongs to the named category
func (t Task) HasCategory(name string) bool {
	return t.Category != nil && *t.Category == name
}

// Partition returns the ordering partition the task belongs to
func (t Task) Partition() PartitionKey {
	return PartitionKey{Date: t.Date, Done: t.Done, Priority: t.Priority}
}

// Clone returns a deep copy; pointer fields are not shared
func (t Task) Clone() Task {
	c := t
	c.Category = cloneString(t.Category)
	c.Notes = cloneString(t.Notes)
	if t.RepeatEveryDays != nil {
		n := *t.RepeatEveryDays
		c.RepeatEveryDays = &n
	}
	if t.RepeatUntil != nil {
		d := *t.RepeatUntil
		c.RepeatUntil = &d
	}
	return c
}

// Draft returns the insert shape that would recreate this task
func (t Task) Draft() TaskDraft {
	c := t.Clone()
	return TaskDraft{
		OwnerID:         c.OwnerID,
		Date:            c.Date,
		Title:           c.Title,
		Category:        c.Category,
		Done:            c.Done,
		Priority:        c.Priority,
		RepeatEveryDays: c.RepeatEveryDays,
		RepeatUntil:     c.RepeatUntil,
		SortOrder:       c.SortOrder,
		Notes:           c.Notes,
	}
}

// TaskDraft is a task that has not been assigned an id yet
type TaskDraft struct {
	OwnerID         string   `json:"owner_id"`
	Date            Date     `json:"date"`
	Title           string   `json:"title"`
	Category        *string  `json:"category"`
	Done            bool     `json:"done"`
	Priority        Priority `json:"priority"`
	RepeatEveryDays *int     `json:"repeat_every_days"`
	RepeatUntil     *Date    `json:"repeat_until"`
	SortOrder       float64  `json:"sort_order"`
	Notes           *string  `json:"notes"`
}

// Validate checks the fields every backend relies on
func (d TaskDraft) Validate() error {
	if d.OwnerID == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	if !d.Date.Valid() {
		return fmt.Errorf("invalid date %q", d.Date)
	}
	if !d.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// Task materializes the draft with the given id and creation time
func (d TaskDraft) Task(id string, createdAt time.Time) Task {
	t := Task{
		ID:              id,
		OwnerID:         d.OwnerID,
		Date:            d.Date,
		Title:           d.Title,
		Category:        d.Category,
		Done:            d.Done,
		Priority:        d.Priority,
		RepeatEveryDays: d.RepeatEveryDays,
		RepeatUntil:     d.RepeatUntil,
		SortOrder:       d.SortOrder,
		Notes:           d.Notes,
		CreatedAt:       createdAt,
	}
	return t.Clone()
}

// TaskPatch specifies fields to update on a task.
// Nil pointers leave a field untouched. Category and Notes are nullable in
// storage, so clearing them needs the explicit Set flags.
type TaskPatch struct {
	Title       *string
	Date        *Date
	Done        *bool
	Priority    *Priority
	SortOrder   *float64
	SetCategory bool
	Category    *string
	SetNotes    bool
	Notes       *string
}

// IsEmpty reports whether the patch changes nothing
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.Done == nil && p.Priority == nil &&
		p.SortOrder == nil && !p.SetCategory && !p.SetNotes
}

// Validate rejects values no backend would accept
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Date != nil && !p.Date.Valid() {
		return fmt.Errorf("invalid date %q", *p.Date)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// Apply writes the patch onto t
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.SortOrder != nil {
		t.SortOrder = *p.SortOrder
	}
	if p.SetCategory {
		t.Category = cloneString(p.Category)
	}
	if p.SetNotes {
		t.Notes = cloneString(p.Notes)
	}
}

// Columns renders the patch as persisted column names to values.
// Cleared nullable fields map to nil.
func (p TaskPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Date != nil {
		cols["date"] = string(*p.Date)
	}
	if p.Done != nil {
		cols["done"] = *p.Done
	}
	if p.Priority != nil {
		cols["priority"] = int(*p.Priority)
	}
	if p.SortOrder != nil {
		cols["sort_order"] = *p.SortOrder
	}
	if p.SetCategory {
		if p.Category == nil {
			cols["category"] = nil
		} else {
			cols["category"] = *p.Category
		}
	}
	if p.SetNotes {
		if p.Notes == nil {
			cols["notes"] = nil
		} else {
			cols["notes"] = *p.Notes
		}
	}
	return cols
}

// StringPtr returns a pointer to s, or nil for the empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
