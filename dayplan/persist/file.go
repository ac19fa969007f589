package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileSink keeps the snapshot in a YAML file
type FileSink struct {
	path string
}

// NewFileSink creates a sink writing to path. Parent directories are
// created on first save.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the snapshot file location
func (f *FileSink) Path() string {
	return f.path
}

// Save writes sn atomically through a temporary file
func (f *FileSink) Save(ctx context.Context, sn Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := yaml.Marshal(sn)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot, or ErrNoSnapshot when the file is missing
func (f *FileSink) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var sn Snapshot
	if err := yaml.Unmarshal(raw, &sn); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse snapshot %s: %w", f.path, err)
	}
	return sn, nil
}
