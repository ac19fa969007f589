package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/gateway/gatewaytest"
	"github.com/arthur-debert/dayplan/types"
)

func TestConformanceOnDisk(t *testing.T) {
	gatewaytest.Run(t, func(t *testing.T) gateway.Gateway {
		s, err := New(filepath.Join(t.TempDir(), "tasks.json"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestConformanceWithMocks(t *testing.T) {
	gatewaytest.Run(t, func(t *testing.T) gateway.Gateway {
		s, err := New("tasks.json",
			WithFileSystem(NewMockFileSystem()),
			WithFileLockFactory(NewMockFileLockFactory()),
		)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		return s
	})
}

func TestStoreWithMockFS(t *testing.T) {
	ctx := context.Background()
	draft := types.TaskDraft{OwnerID: "alice", Date: "2024-03-01", Title: "Test", Priority: types.PriorityNormal}

	t.Run("file is created on first write", func(t *testing.T) {
		mockFS := NewMockFileSystem()
		locks := NewMockFileLockFactory()
		fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		s, err := New("test.json", WithFileSystem(mockFS), WithFileLockFactory(locks), WithTimeFunc(func() time.Time { return fixed }))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if mockFS.FileExists("test.json") {
			t.Error("expected file not to exist initially")
		}

		rows, err := s.InsertTasks(ctx, []types.TaskDraft{draft})
		if err != nil {
			t.Fatalf("InsertTasks() error = %v", err)
		}

		content, ok := mockFS.Content("test.json")
		if !ok {
			t.Fatal("expected file to exist after insert")
		}
		var data TableData
		if err := json.Unmarshal(content, &data); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}
		if len(data.Tasks) != 1 || data.Tasks[0].ID != rows[0].ID {
			t.Errorf("unexpected file content: %+v", data.Tasks)
		}
		if !data.Tasks[0].CreatedAt.Equal(fixed) || !data.Metadata.UpdatedAt.Equal(fixed) {
			t.Errorf("expected injected clock to be used, got %v / %v", data.Tasks[0].CreatedAt, data.Metadata.UpdatedAt)
		}
		if mockFS.FileExists("test.json.tmp") {
			t.Error("temp file left behind")
		}

		lock := locks.Lock("test.json.lock")
		if lock.IsLocked() {
			t.Error("lock should be released after each call")
		}
		if lock.LockAttempts != lock.UnlockAttempts {
			t.Errorf("lock/unlock mismatch: %d/%d", lock.LockAttempts, lock.UnlockAttempts)
		}
	})

	t.Run("read errors surface at open", func(t *testing.T) {
		mockFS := NewMockFileSystem()
		_ = mockFS.WriteFile("test.json", []byte(`{"tasks":[]}`), 0644)
		mockFS.ReadFileError = errors.New("disk read error")

		_, err := New("test.json", WithFileSystem(mockFS), WithFileLockFactory(NewMockFileLockFactory()))
		if !errors.Is(err, mockFS.ReadFileError) {
			t.Errorf("expected read error, got: %v", err)
		}
	})

	t.Run("corrupt file is rejected", func(t *testing.T) {
		mockFS := NewMockFileSystem()
		_ = mockFS.WriteFile("test.json", []byte(`{not json`), 0644)

		if _, err := New("test.json", WithFileSystem(mockFS), WithFileLockFactory(NewMockFileLockFactory())); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("failed rename keeps previous content", func(t *testing.T) {
		mockFS := NewMockFileSystem()
		s, err := New("test.json", WithFileSystem(mockFS), WithFileLockFactory(NewMockFileLockFactory()))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		rows, err := s.InsertTasks(ctx, []types.TaskDraft{draft})
		if err != nil {
			t.Fatalf("InsertTasks() error = %v", err)
		}

		mockFS.RenameError = errors.New("rename failed")
		if err := s.DeleteTask(ctx, rows[0].ID, "alice"); !errors.Is(err, mockFS.RenameError) {
			t.Fatalf("expected rename error, got %v", err)
		}
		mockFS.RenameError = nil

		listed, err := s.ListTasks(ctx, "alice", "2024-03-01", "2024-03-01")
		if err != nil {
			t.Fatalf("ListTasks() error = %v", err)
		}
		if len(listed) != 1 {
			t.Errorf("expected task to survive failed save, got %d rows", len(listed))
		}
		if mockFS.FileExists("test.json.tmp") {
			t.Error("temp file left behind")
		}
	})

	t.Run("lock errors are reported", func(t *testing.T) {
		locks := NewMockFileLockFactory()
		locks.Lock("test.json.lock").LockError = errors.New("lock broken")

		_, err := New("test.json", WithFileSystem(NewMockFileSystem()), WithFileLockFactory(locks))
		if err == nil {
			t.Error("expected lock error")
		}
	})
}

func TestTwoStoresShareOneFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.json")

	first, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	second, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rows, err := first.InsertTasks(ctx, []types.TaskDraft{{OwnerID: "alice", Date: "2024-03-01", Title: "shared", Priority: 1}})
	if err != nil {
		t.Fatalf("InsertTasks() error = %v", err)
	}

	listed, err := second.ListTasks(ctx, "alice", "2024-03-01", "2024-03-01")
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(listed) != 1 || listed[0].ID != rows[0].ID {
		t.Errorf("second store did not see first store's write: %+v", listed)
	}
}
