// Package persist caches an engine's local state between sessions.
//
// A Snapshot is the owner's tasks and category set at one point in time.
// Sinks store one snapshot each: FileSink writes YAML to disk, RedisSink
// keeps it under a Redis key. The Debouncer sits between the engine's
// StoreChanged hook and a Sink so a burst of edits costs a single write.
//
// The cache is a warm start, not a source of truth: after Restore the
// caller is expected to Load from the gateway.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arthur-debert/dayplan/dayplan/engine"
	"github.com/arthur-debert/dayplan/types"
)

var (
	// ErrNoSnapshot is returned by Sink.Load when nothing was saved yet
	ErrNoSnapshot = errors.New("no snapshot saved")

	// ErrOwnerMismatch is returned when restoring another owner's snapshot
	ErrOwnerMismatch = errors.New("snapshot belongs to another owner")
)

// Snapshot is the persisted local state of one owner
type Snapshot struct {
	Owner      string       `json:"owner" yaml:"owner"`
	SavedAt    time.Time    `json:"saved_at" yaml:"saved_at"`
	Categories []string     `json:"categories" yaml:"categories"`
	Tasks      []types.Task `json:"tasks" yaml:"tasks"`
}

// Sink stores a single snapshot
type Sink interface {
	Save(ctx context.Context, sn Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// Capture reads the current state of eng
func Capture(eng *engine.Engine) Snapshot {
	view := eng.View()
	return Snapshot{
		Owner:      eng.Owner(),
		Categories: view.Categories(),
		Tasks:      view.Tasks(),
	}
}

// Restore seeds eng from sn
func Restore(eng *engine.Engine, sn Snapshot) error {
	if sn.Owner != eng.Owner() {
		return fmt.Errorf("%w: %q", ErrOwnerMismatch, sn.Owner)
	}
	eng.Seed(sn.Tasks, sn.Categories)
	return nil
}

// Warm loads the sink's snapshot into eng. A missing snapshot is not an
// error; the returned bool reports whether anything was restored.
func Warm(ctx context.Context, sink Sink, eng *engine.Engine) (bool, error) {
	sn, err := sink.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := Restore(eng, sn); err != nil {
		return false, err
	}
	return true, nil
}
