package taskstore

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/dayplan/types"
)

func newTask(id string, date types.Date, key float64) types.Task {
	return types.Task{ID: id, OwnerID: "owner", Date: date, Title: id, Priority: types.PriorityNormal, SortOrder: key}
}

func TestStoreBasics(t *testing.T) {
	s := New()
	s.Put(newTask("b", "2024-03-01", 2000))
	s.Put(newTask("a", "2024-03-01", 1000))
	s.Put(newTask("c", "2024-03-02", 1000))

	day := s.Day("2024-03-01")
	if len(day) != 2 || day[0].ID != "a" || day[1].ID != "b" {
		t.Fatalf("unexpected day order: %+v", day)
	}

	if diff := cmp.Diff([]types.Date{"2024-03-01", "2024-03-02"}, s.Dates()); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}

	t.Run("put moves between days", func(t *testing.T) {
		moved := newTask("a", "2024-03-02", 500)
		s.Put(moved)
		if len(s.Day("2024-03-01")) != 1 {
			t.Error("task still present on old day")
		}
		got, ok := s.Get("a")
		if !ok || got.Date != "2024-03-02" {
			t.Errorf("expected task on new day, got %+v", got)
		}
	})

	t.Run("remove deletes empty days", func(t *testing.T) {
		if _, err := s.Remove("b"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		for _, d := range s.Dates() {
			if d == "2024-03-01" {
				t.Error("empty day should be dropped")
			}
		}
		if _, err := s.Remove("b"); !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("update keeps id", func(t *testing.T) {
		updated, err := s.Update("c", func(task *types.Task) {
			task.ID = "hijack"
			task.Done = true
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.ID != "c" || !updated.Done {
			t.Errorf("unexpected update result: %+v", updated)
		}
		if _, ok := s.Get("hijack"); ok {
			t.Error("update must not rename tasks")
		}
	})
}

func TestReturnedTasksAreCopies(t *testing.T) {
	s := New()
	cat := "work"
	task := newTask("a", "2024-03-01", 1)
	task.Category = &cat
	s.Put(task)

	cat = "changed"
	got, _ := s.Get("a")
	*got.Category = "mutated"

	again, _ := s.Get("a")
	if again.CategoryName() != "work" {
		t.Errorf("store shares memory with callers, category = %q", again.CategoryName())
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := New()
	s.Put(newTask("a", "2024-03-01", 1000))
	s.Put(newTask("b", "2024-03-01", 2000))
	s.Put(newTask("c", "2024-03-05", 1000))

	before := s.All()
	snap := s.Snapshot("2024-03-01", "2024-03-02", "2024-03-01")

	// Mutate captured and previously-empty days.
	_, _ = s.Update("a", func(task *types.Task) { task.Title = "changed" })
	_, _ = s.Update("b", func(task *types.Task) { task.Date = "2024-03-02" })
	s.Put(newTask("new", "2024-03-01", 3000))

	changed := s.Changes(snap)
	sort.Strings(changed)
	if diff := cmp.Diff([]string{"a", "b", "new"}, changed); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}

	s.RestoreRows(snap, changed)

	if diff := cmp.Diff(before, s.All()); diff != "" {
		t.Errorf("restore mismatch (-before +after):\n%s", diff)
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 tasks, got %d", s.Len())
	}
	if len(s.Changes(snap)) != 0 {
		t.Errorf("expected no changes after restore, got %v", s.Changes(snap))
	}

	t.Run("pulls back tasks moved to uncaptured days", func(t *testing.T) {
		snap := s.Snapshot("2024-03-01")
		_, _ = s.Update("a", func(task *types.Task) { task.Date = "2024-04-01" })
		s.RestoreRows(snap, s.Changes(snap))
		if diff := cmp.Diff(before, s.All()); diff != "" {
			t.Errorf("restore mismatch (-before +after):\n%s", diff)
		}
	})

	t.Run("keeps rows written after the changes were taken", func(t *testing.T) {
		snap := s.Snapshot("2024-03-01")
		_, _ = s.Update("a", func(task *types.Task) { task.Done = true })
		changed := s.Changes(snap)

		// a later write to another row of the same day
		_, _ = s.Update("b", func(task *types.Task) { task.Title = "confirmed" })

		s.RestoreRows(snap, changed)
		a, _ := s.Get("a")
		b, _ := s.Get("b")
		if a.Done {
			t.Error("expected a to be rolled back")
		}
		if b.Title != "confirmed" {
			t.Errorf("restore reverted an unrelated row, title = %q", b.Title)
		}
	})
}

func TestReplaceRange(t *testing.T) {
	s := New()
	s.Put(newTask("old", "2024-03-01", 1))
	s.Put(newTask("outside", "2024-04-01", 1))

	s.ReplaceRange("2024-03-01", "2024-03-31", []types.Task{
		newTask("fresh", "2024-03-10", 1),
		newTask("ignored", "2024-05-01", 1),
	})

	var got []string
	for _, task := range s.All() {
		got = append(got, task.ID)
	}
	if diff := cmp.Diff([]string{"fresh", "outside"}, got); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	s.Replace([]types.Task{newTask("only", "2024-06-01", 1)})
	if s.Len() != 1 || len(s.Dates()) != 1 {
		t.Errorf("Replace left stale tasks: %+v", s.All())
	}
	if _, ok := s.Get("fresh"); ok {
		t.Error("replaced task still indexed")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Put(newTask(string(rune('a'+i)), "2024-03-01", float64(i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Day("2024-03-01")
		}()
	}
	wg.Wait()
	if s.Len() != 20 {
		t.Errorf("expected 20 tasks, got %d", s.Len())
	}
}
