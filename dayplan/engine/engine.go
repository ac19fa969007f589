// Package engine is the optimistic mutation controller of dayplan.
//
// An Engine owns the task store, the category set, the selected category
// and the undo slot of one owner. Every user command is a Mutation: the
// engine snapshots what the command touches, applies it locally under its
// lock, then runs the remote call on a goroutine. A failed remote call
// restores the snapshot; the caller learns about it from Pending.Wait.
//
// Basic usage:
//
//	eng, err := engine.New(gw, "alice")
//	if err != nil {
//	    return err
//	}
//	if err := eng.Load(ctx, from, to); err != nil {
//	    return err
//	}
//	p, err := eng.ToggleTask(id)   // local change is visible now
//	if err != nil {
//	    return err                 // validation, nothing applied
//	}
//	if err := p.Wait(); err != nil {
//	    // rolled back
//	}
//
// UIs read through View and never touch the store directly.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/ordering"
	"github.com/arthur-debert/dayplan/dayplan/taskstore"
	"github.com/arthur-debert/dayplan/dayplan/undo"
	"github.com/arthur-debert/dayplan/types"
)

// Engine is the context object the UI drives
type Engine struct {
	mu    sync.Mutex
	owner string
	gw    gateway.Gateway
	state *State

	alloc       *ordering.Allocator
	undo        *undo.Manager
	hooks       Hooks
	logger      *slog.Logger
	syncTimeout time.Duration
	now         func() time.Time

	celebrated map[types.Date]bool
	today      types.Date

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks sets the presentation hooks
func WithHooks(hooks Hooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithAllocator replaces the default order-key allocator
func WithAllocator(alloc *ordering.Allocator) Option {
	return func(e *Engine) {
		e.alloc = alloc
	}
}

// WithUndoManager replaces the default undo manager
func WithUndoManager(m *undo.Manager) Option {
	return func(e *Engine) {
		e.undo = m
	}
}

// WithSyncTimeout bounds every remote call. Zero means no bound.
func WithSyncTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.syncTimeout = d
	}
}

// WithClock sets the clock used for today's date
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine for ownerID backed by gw
func New(gw gateway.Gateway, ownerID string, opts ...Option) (*Engine, error) {
	if ownerID == "" {
		return nil, types.ErrMissingOwner
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		owner: ownerID,
		gw:    gw,
		state: &State{
			Tasks:      taskstore.New(),
			Categories: types.NewCategorySet(),
		},
		logger:     slog.Default(),
		now:        time.Now,
		celebrated: make(map[types.Date]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.alloc == nil {
		e.alloc = ordering.New(ordering.WithClock(e.now))
	}
	if e.undo == nil {
		e.undo = undo.NewManager(undo.WithLogger(e.logger))
	}
	e.today = types.DateOf(e.now())
	return e, nil
}

// Owner returns the owner every call is scoped by
func (e *Engine) Owner() string {
	return e.owner
}

// View returns the read surface
func (e *Engine) View() View {
	return View{e: e}
}

// Wait blocks until every in-flight remote call settled
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Close cancels in-flight remote calls, waits for their rollbacks and
// discards any pending undo
func (e *Engine) Close() {
	e.cancel()
	e.inflight.Wait()
	e.undo.Dismiss()
}

// Load replaces the dates in [from, to] with the owner's remote tasks.
// On failure the store is left as it was.
func (e *Engine) Load(ctx context.Context, from, to types.Date) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %s..%s", ErrInvalidDate, from, to)
	}
	rows, err := e.gw.ListTasks(ctx, e.owner, from, to)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	e.mu.Lock()
	e.state.Tasks.ReplaceRange(from, to, rows)
	for _, name := range types.CategoriesOf(rows) {
		e.state.Categories.Add(name)
	}
	e.markLoaded(e.state.Tasks.Dates())
	e.mu.Unlock()

	e.logger.Debug("tasks loaded", "owner", e.owner, "from", from, "to", to, "count", len(rows))
	e.changed()
	return nil
}

// Seed replaces the whole local state, e.g. from a cached snapshot.
// Tasks of other owners are ignored.
func (e *Engine) Seed(tasks []types.Task, categories []string) {
	owned := make([]types.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.OwnerID == e.owner {
			owned = append(owned, t)
		}
	}

	e.mu.Lock()
	e.state.Tasks.Replace(owned)
	e.state.Categories = types.NewCategorySet(categories...)
	for _, name := range types.CategoriesOf(owned) {
		e.state.Categories.Add(name)
	}
	if e.state.Selected != "" && !e.state.Categories.Contains(e.state.Selected) {
		e.state.Selected = ""
	}
	e.celebrated = make(map[types.Date]bool)
	e.markLoaded(e.state.Tasks.Dates())
	e.mu.Unlock()

	e.changed()
}

// markLoaded flags already-complete days as celebrated so loading does
// not celebrate them. Caller holds e.mu.
func (e *Engine) markLoaded(dates []types.Date) {
	for _, d := range dates {
		if dayComplete(e.state.Tasks.Day(d)) {
			e.celebrated[d] = true
		} else {
			delete(e.celebrated, d)
		}
	}
}

// run applies m locally and syncs it in the background
func (e *Engine) run(m Mutation) (*Pending, error) {
	e.mu.Lock()
	sn := m.Snapshot(e.state)
	err := m.Apply(e.state)
	recordTouched(e.state, &sn)
	if err != nil {
		m.Restore(e.state, sn)
		e.mu.Unlock()
		return nil, err
	}
	ev := e.completionEvents(sn)
	e.mu.Unlock()

	e.fire(ev)
	e.changed()

	p := newPending(m.Name())
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		p.resolve(e.sync(m, sn))
	}()
	return p, nil
}

// sync runs the remote half of m and rolls back on failure
func (e *Engine) sync(m Mutation, sn Snapshot) error {
	ctx, cancel := e.syncContext()
	defer cancel()

	err := m.Sync(ctx, e.gw)
	if err == nil {
		if c, ok := m.(confirmer); ok {
			c.confirmed(e)
		}
		return nil
	}

	e.logger.Warn("sync failed, rolling back", "mutation", m.Name(), "owner", e.owner, "error", err)
	e.mu.Lock()
	m.Restore(e.state, sn)
	e.celebrate(sn.Dates(), false)
	e.mu.Unlock()
	e.changed()

	return fmt.Errorf("%w: %s: %w", ErrSyncFailed, m.Name(), err)
}

func (e *Engine) syncContext() (context.Context, context.CancelFunc) {
	if e.syncTimeout > 0 {
		return context.WithTimeout(e.ctx, e.syncTimeout)
	}
	return context.WithCancel(e.ctx)
}
