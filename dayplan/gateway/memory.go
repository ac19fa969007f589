package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arthur-debert/dayplan/types"
)

// Operation names used for failure injection
const (
	OpList       = "list"
	OpInsert     = "insert"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpBulkUpdate = "bulk_update"
)

// Memory is an in-process Gateway. It can be told to fail operations,
// which is how rollback paths are exercised in tests.
type Memory struct {
	mu       sync.Mutex
	rows     map[string]types.Task
	failures map[string][]error
	calls    map[string]int
	gate     chan struct{}
	now      func() time.Time
}

// NewMemory creates an empty in-memory gateway
func NewMemory() *Memory {
	return &Memory{
		rows:     make(map[string]types.Task),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
		now:      time.Now,
	}
}

// FailNext queues err as the result of the next call of op
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// Calls returns how many times op was invoked
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Hold makes every call block until Release is called
func (m *Memory) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks calls held by Hold
func (m *Memory) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Rows returns a copy of every stored row, ordered by date then sort order
func (m *Memory) Rows() []types.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Task, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, t.Clone())
	}
	SortRows(out)
	return out
}

// Seed stores tasks as-is, keeping their ids
func (m *Memory) Seed(tasks ...types.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.rows[t.ID] = t.Clone()
	}
}

// begin records the call, waits on the gate and pops an injected failure
func (m *Memory) begin(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if queued := m.failures[op]; len(queued) > 0 {
		m.failures[op] = queued[1:]
		return queued[0]
	}
	return ctx.Err()
}

// ListTasks implements Gateway.ListTasks
func (m *Memory) ListTasks(ctx context.Context, ownerID string, from, to types.Date) ([]types.Task, error) {
	if err := ValidateRange(ownerID, from, to); err != nil {
		return nil, err
	}
	if err := m.begin(ctx, OpList); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Task
	for _, t := range m.rows {
		if t.OwnerID == ownerID && !t.Date.Before(from) && !to.Before(t.Date) {
			out = append(out, t.Clone())
		}
	}
	SortRows(out)
	return out, nil
}

// InsertTasks implements Gateway.InsertTasks
func (m *Memory) InsertTasks(ctx context.Context, drafts []types.TaskDraft) ([]types.Task, error) {
	if err := ValidateDrafts(drafts); err != nil {
		return nil, err
	}
	if err := m.begin(ctx, OpInsert); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make([]types.Task, 0, len(drafts))
	for _, d := range drafts {
		t := d.Task(uuid.New().String(), now)
		m.rows[t.ID] = t
		out = append(out, t.Clone())
	}
	return out, nil
}

// UpdateTask implements Gateway.UpdateTask
func (m *Memory) UpdateTask(ctx context.Context, id, ownerID string, patch types.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if err := m.begin(ctx, OpUpdate); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	patch.Apply(&t)
	m.rows[id] = t
	return nil
}

// DeleteTask implements Gateway.DeleteTask
func (m *Memory) DeleteTask(ctx context.Context, id, ownerID string) error {
	if err := m.begin(ctx, OpDelete); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.rows, id)
	return nil
}

// BulkUpdateCategory implements Gateway.BulkUpdateCategory
func (m *Memory) BulkUpdateCategory(ctx context.Context, ownerID, oldCategory string, newCategory *string) error {
	if ownerID == "" {
		return types.ErrMissingOwner
	}
	if err := m.begin(ctx, OpBulkUpdate); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	patch := types.TaskPatch{SetCategory: true, Category: newCategory}
	for id, t := range m.rows {
		if t.OwnerID == ownerID && t.HasCategory(oldCategory) {
			patch.Apply(&t)
			m.rows[id] = t
		}
	}
	return nil
}

// SortRows orders rows the way ListTasks returns them: date, sort order, id
func SortRows(rows []types.Task) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		if rows[i].SortOrder != rows[j].SortOrder {
			return rows[i].SortOrder < rows[j].SortOrder
		}
		return rows[i].ID < rows[j].ID
	})
}
