package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultDelay is how long the Debouncer waits after the last change
const DefaultDelay = 500 * time.Millisecond

// ErrClosed is returned by Flush after Close
var ErrClosed = errors.New("debouncer closed")

// Timer is a stoppable scheduled call
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d
type AfterFunc func(d time.Duration, f func()) Timer

// Debouncer saves a snapshot once changes stop arriving for a delay.
// Trigger is cheap and safe to call from engine hooks.
type Debouncer struct {
	sink   Sink
	source func() Snapshot

	delay       time.Duration
	saveTimeout time.Duration
	afterFunc   AfterFunc
	now         func() time.Time
	logger      *slog.Logger

	mu     sync.Mutex
	timer  Timer
	gen    uint64
	dirty  bool
	closed bool

	saveMu  sync.Mutex
	lastErr error
	saves   int
}

// DebounceOption configures a Debouncer
type DebounceOption func(*Debouncer)

// WithDelay sets the quiet period before a save
func WithDelay(d time.Duration) DebounceOption {
	return func(db *Debouncer) {
		db.delay = d
	}
}

// WithSaveTimeout bounds each background save
func WithSaveTimeout(d time.Duration) DebounceOption {
	return func(db *Debouncer) {
		db.saveTimeout = d
	}
}

// WithAfterFunc replaces time.AfterFunc, for tests
func WithAfterFunc(fn AfterFunc) DebounceOption {
	return func(db *Debouncer) {
		db.afterFunc = fn
	}
}

// WithClock sets the clock used for SavedAt
func WithClock(now func() time.Time) DebounceOption {
	return func(db *Debouncer) {
		db.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) DebounceOption {
	return func(db *Debouncer) {
		db.logger = logger
	}
}

// NewDebouncer creates a debouncer saving source() into sink
func NewDebouncer(sink Sink, source func() Snapshot, opts ...DebounceOption) *Debouncer {
	db := &Debouncer{
		sink:        sink,
		source:      source,
		delay:       DefaultDelay,
		saveTimeout: 5 * time.Second,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Trigger marks the state dirty and restarts the quiet period
func (db *Debouncer) Trigger() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return
	}
	db.dirty = true
	if db.timer != nil {
		db.timer.Stop()
	}
	db.gen++
	gen := db.gen
	db.timer = db.afterFunc(db.delay, func() { db.fire(gen) })
}

func (db *Debouncer) fire(gen uint64) {
	db.mu.Lock()
	if gen != db.gen || !db.dirty {
		db.mu.Unlock()
		return
	}
	db.dirty = false
	db.timer = nil
	db.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), db.saveTimeout)
	defer cancel()
	if err := db.save(ctx); err != nil {
		db.logger.Warn("snapshot save failed", "error", err)
	}
}

// Flush saves now if anything changed since the last save
func (db *Debouncer) Flush(ctx context.Context) error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return ErrClosed
	}
	dirty := db.takeDirty()
	db.mu.Unlock()

	if !dirty {
		return nil
	}
	return db.save(ctx)
}

// Close flushes pending changes and ignores later triggers
func (db *Debouncer) Close(ctx context.Context) error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	dirty := db.takeDirty()
	db.mu.Unlock()

	if !dirty {
		return nil
	}
	return db.save(ctx)
}

// takeDirty cancels the timer and clears the dirty flag; caller holds mu
func (db *Debouncer) takeDirty() bool {
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
	db.gen++
	dirty := db.dirty
	db.dirty = false
	return dirty
}

func (db *Debouncer) save(ctx context.Context) error {
	db.saveMu.Lock()
	defer db.saveMu.Unlock()

	sn := db.source()
	sn.SavedAt = db.now()
	err := db.sink.Save(ctx, sn)
	db.lastErr = err
	if err == nil {
		db.saves++
		db.logger.Debug("snapshot saved", "owner", sn.Owner, "tasks", len(sn.Tasks))
	}
	return err
}

// Saves returns how many saves succeeded
func (db *Debouncer) Saves() int {
	db.saveMu.Lock()
	defer db.saveMu.Unlock()
	return db.saves
}

// LastError returns the result of the most recent save
func (db *Debouncer) LastError() error {
	db.saveMu.Lock()
	defer db.saveMu.Unlock()
	return db.lastErr
}
