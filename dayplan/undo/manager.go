// Package undo keeps at most one pending compensating action.
//
// The slot moves between two states:
//
//	empty --Arm--> armed --(Invoke | Dismiss | timeout | Arm)--> empty/armed
//
// Arming while armed replaces the entry without running the old action.
// Invoke runs the action at most once. Timers are injected so tests can
// expire an entry without sleeping.
package undo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout is how long an entry stays available
const DefaultTimeout = 5 * time.Second

// ErrNothingToUndo is returned by Invoke when the slot is empty
var ErrNothingToUndo = errors.New("nothing to undo")

// Action compensates for a confirmed mutation
type Action func(ctx context.Context) error

// Timer is the part of *time.Timer the manager uses
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d, like time.AfterFunc
type AfterFunc func(d time.Duration, f func()) Timer

// Entry describes the pending undo
type Entry struct {
	Message   string
	ExpiresAt time.Time
}

type slot struct {
	entry  Entry
	action Action
	timer  Timer
	gen    uint64
}

// Manager is the single-slot undo holder
type Manager struct {
	mu        sync.Mutex
	timeout   time.Duration
	afterFunc AfterFunc
	now       func() time.Time
	logger    *slog.Logger
	onChange  func()
	gen       uint64
	current   *slot
}

// Option configures a Manager
type Option func(*Manager)

// WithTimeout sets how long an armed entry lives
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithAfterFunc replaces time.AfterFunc
func WithAfterFunc(fn AfterFunc) Option {
	return func(m *Manager) {
		m.afterFunc = fn
	}
}

// WithClock sets the clock used for expiry timestamps
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithOnChange registers a callback run after the slot changes.
// It runs outside the manager lock.
func WithOnChange(fn func()) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// NewManager creates an empty manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		timeout: DefaultTimeout,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Timeout returns the configured lifetime of an entry
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Arm replaces any pending entry with a new one
func (m *Manager) Arm(message string, action Action) {
	m.mu.Lock()
	m.clear()
	m.gen++
	gen := m.gen
	s := &slot{
		entry:  Entry{Message: message, ExpiresAt: m.now().Add(m.timeout)},
		action: action,
		gen:    gen,
	}
	m.current = s
	s.timer = m.afterFunc(m.timeout, func() { m.expire(gen) })
	m.mu.Unlock()

	m.logger.Debug("undo armed", "message", message, "timeout", m.timeout)
	m.changed()
}

// Dismiss discards the pending entry without running it.
// Returns false when there was none.
func (m *Manager) Dismiss() bool {
	m.mu.Lock()
	had := m.clear()
	m.mu.Unlock()

	if had {
		m.changed()
	}
	return had
}

// Invoke takes the pending action out of the slot and runs it
func (m *Manager) Invoke(ctx context.Context) error {
	m.mu.Lock()
	s := m.current
	m.clear()
	m.mu.Unlock()

	if s == nil {
		return ErrNothingToUndo
	}
	m.changed()
	m.logger.Debug("undo invoked", "message", s.entry.Message)
	return s.action(ctx)
}

// Pending returns the live entry, if any
func (m *Manager) Pending() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Entry{}, false
	}
	return m.current.entry, true
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if m.current == nil || m.current.gen != gen {
		// superseded
		m.mu.Unlock()
		return
	}
	message := m.current.entry.Message
	m.current = nil
	m.mu.Unlock()

	m.logger.Debug("undo expired", "message", message)
	m.changed()
}

// clear empties the slot; caller holds mu
func (m *Manager) clear() bool {
	if m.current == nil {
		return false
	}
	if m.current.timer != nil {
		m.current.timer.Stop()
	}
	m.current = nil
	return true
}

func (m *Manager) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}
