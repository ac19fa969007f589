// Package jsonfile is a gateway.Gateway backed by a single JSON file.
// Every call takes a cross-process file lock, reloads the file, applies the
// change and writes it back atomically, so several CLI processes can share
// one table.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/types"
)

// Constants for file locking
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// TableData is the on-disk document
type TableData struct {
	Tasks    []types.Task `json:"tasks"`
	Metadata Metadata     `json:"metadata"`
}

// Metadata contains storage metadata
type Metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store implements gateway.Gateway on a JSON file
type Store struct {
	filePath    string
	mu          sync.Mutex
	fs          FileSystem
	lockFactory FileLockFactory
	fileLock    FileLock
	logger      *slog.Logger
	// timeFunc is used to get the current time, defaults to time.Now
	timeFunc func() time.Time
}

var _ gateway.Gateway = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithFileSystem sets a custom FileSystem implementation
func WithFileSystem(fs FileSystem) Option {
	return func(s *Store) {
		s.fs = fs
	}
}

// WithFileLockFactory sets a custom FileLockFactory implementation
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(s *Store) {
		s.lockFactory = factory
	}
}

// WithTimeFunc sets a custom time function for testing
func WithTimeFunc(fn func() time.Time) Option {
	return func(s *Store) {
		s.timeFunc = fn
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New opens (or lazily creates) the table at filePath
func New(filePath string, opts ...Option) (*Store, error) {
	if filePath == "" {
		return nil, errors.New("json table path is required")
	}
	s := &Store{
		filePath: filePath,
		timeFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = OSFileSystem{}
	}
	if s.lockFactory == nil {
		s.lockFactory = FlockFactory{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.fileLock = s.lockFactory.New(filePath + ".lock")

	// Fail early on an unreadable or corrupt file.
	if err := s.withTable(context.Background(), false, func(*TableData) error { return nil }); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return s, nil
}

// Close releases nothing today; it exists so callers can treat every
// backend the same way
func (s *Store) Close() error {
	return nil
}

// acquireLock attempts to acquire an exclusive file lock with retry logic
func (s *Store) acquireLock(ctx context.Context) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

// withTable runs fn against a freshly loaded table while holding both the
// in-process mutex and the file lock. When write is true the table is
// saved after fn succeeds.
func (s *Store) withTable(ctx context.Context, write bool, fn func(*TableData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	if err := s.acquireLock(lockCtx); err != nil {
		return err
	}
	defer func() { _ = s.fileLock.Unlock() }()

	data, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return s.save(data)
}

// load reads the JSON file; a missing or empty file is an empty table
func (s *Store) load() (*TableData, error) {
	now := s.timeFunc()
	empty := &TableData{
		Tasks:    []types.Task{},
		Metadata: Metadata{Version: "1.0", CreatedAt: now, UpdatedAt: now},
	}

	if _, err := s.fs.Stat(s.filePath); errors.Is(err, os.ErrNotExist) {
		return empty, nil
	}

	raw, err := s.fs.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(raw) == 0 {
		return empty, nil
	}

	var data TableData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &data, nil
}

// save writes the table atomically (temp file, then rename)
func (s *Store) save(data *TableData) error {
	data.Metadata.UpdatedAt = s.timeFunc()

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := s.fs.WriteFile(tmpFile, raw, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := s.fs.Rename(tmpFile, s.filePath); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// ListTasks implements gateway.Gateway.ListTasks
func (s *Store) ListTasks(ctx context.Context, ownerID string, from, to types.Date) ([]types.Task, error) {
	if err := gateway.ValidateRange(ownerID, from, to); err != nil {
		return nil, err
	}
	var out []types.Task
	err := s.withTable(ctx, false, func(data *TableData) error {
		for _, t := range data.Tasks {
			if t.OwnerID == ownerID && !t.Date.Before(from) && !to.Before(t.Date) {
				out = append(out, t.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	gateway.SortRows(out)
	return out, nil
}

// InsertTasks implements gateway.Gateway.InsertTasks
func (s *Store) InsertTasks(ctx context.Context, drafts []types.TaskDraft) ([]types.Task, error) {
	if err := gateway.ValidateDrafts(drafts); err != nil {
		return nil, err
	}
	out := make([]types.Task, 0, len(drafts))
	err := s.withTable(ctx, true, func(data *TableData) error {
		now := s.timeFunc()
		for _, d := range drafts {
			t := d.Task(uuid.New().String(), now)
			data.Tasks = append(data.Tasks, t)
			out = append(out, t.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	s.logger.Debug("tasks inserted", "count", len(out), "file", s.filePath)
	return out, nil
}

// UpdateTask implements gateway.Gateway.UpdateTask
func (s *Store) UpdateTask(ctx context.Context, id, ownerID string, patch types.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	return s.withTable(ctx, true, func(data *TableData) error {
		i := indexOf(data.Tasks, id, ownerID)
		if i < 0 {
			return fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
		}
		patch.Apply(&data.Tasks[i])
		return nil
	})
}

// DeleteTask implements gateway.Gateway.DeleteTask
func (s *Store) DeleteTask(ctx context.Context, id, ownerID string) error {
	return s.withTable(ctx, true, func(data *TableData) error {
		i := indexOf(data.Tasks, id, ownerID)
		if i < 0 {
			return fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
		}
		data.Tasks = append(data.Tasks[:i], data.Tasks[i+1:]...)
		return nil
	})
}

// BulkUpdateCategory implements gateway.Gateway.BulkUpdateCategory
func (s *Store) BulkUpdateCategory(ctx context.Context, ownerID, oldCategory string, newCategory *string) error {
	if ownerID == "" {
		return types.ErrMissingOwner
	}
	patch := types.TaskPatch{SetCategory: true, Category: newCategory}
	return s.withTable(ctx, true, func(data *TableData) error {
		changed := 0
		for i := range data.Tasks {
			if data.Tasks[i].OwnerID == ownerID && data.Tasks[i].HasCategory(oldCategory) {
				patch.Apply(&data.Tasks[i])
				changed++
			}
		}
		s.logger.Debug("bulk category update", "owner", ownerID, "from", oldCategory, "rows", changed)
		return nil
	})
}

func indexOf(tasks []types.Task, id, ownerID string) int {
	for i, t := range tasks {
		if t.ID == id && t.OwnerID == ownerID {
			return i
		}
	}
	return -1
}
