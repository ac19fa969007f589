package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/undo"
	"github.com/arthur-debert/dayplan/testutil"
	"github.com/arthur-debert/dayplan/types"
)

func findByTitle(t *testing.T, tasks []types.Task, title string) types.Task {
	t.Helper()
	for _, task := range tasks {
		if task.Title == title {
			return task
		}
	}
	t.Fatalf("no task titled %q", title)
	return types.Task{}
}

func TestDeleteAndUndo(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	mustSettle(t)(eng.DeleteTask(week.Groceries.ID))

	if _, ok := eng.View().Task(week.Groceries.ID); ok {
		t.Fatal("task should be gone")
	}
	entry, ok := eng.View().PendingUndo()
	if !ok {
		t.Fatal("expected an undo entry after a confirmed delete")
	}
	if entry.Message != `Deleted "Buy groceries"` {
		t.Errorf("unexpected message %q", entry.Message)
	}
	if want := testutil.Now.Add(undo.DefaultTimeout); !entry.ExpiresAt.Equal(want) {
		t.Errorf("expires at %v, want %v", entry.ExpiresAt, want)
	}

	if err := eng.Undo(context.Background()); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	restored := findByTitle(t, eng.View().Day(testutil.Monday), "Buy groceries")
	if restored.ID == week.Groceries.ID {
		t.Error("restored task should get a fresh id")
	}
	if diff := cmp.Diff(week.Groceries, restored, cmpopts.IgnoreFields(types.Task{}, "ID", "CreatedAt")); diff != "" {
		t.Errorf("restored task mismatch (-want +got):\n%s", diff)
	}
	testutil.AssertDayOrder(t, eng, testutil.Monday,
		week.Pitch.ID, week.Standup.ID, week.Review.ID, restored.ID, week.Report.ID)
	row(t, week.Gateway, restored.ID)

	if _, ok := eng.View().PendingUndo(); ok {
		t.Error("undo slot should be empty after undo")
	}
	if err := eng.Undo(context.Background()); !errors.Is(err, undo.ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestUndoKeepsOnlyTheLatestDelete(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	mustSettle(t)(eng.DeleteTask(week.Standup.ID))
	mustSettle(t)(eng.DeleteTask(week.Review.ID))

	if err := eng.Undo(context.Background()); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	titles := map[string]bool{}
	for _, task := range eng.View().Day(testutil.Monday) {
		titles[task.Title] = true
	}
	if !titles["Code review"] {
		t.Error("the latest delete should be restored")
	}
	if titles["Standup"] {
		t.Error("an earlier delete must not be restorable")
	}
	if err := eng.Undo(context.Background()); !errors.Is(err, undo.ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestUndoExpires(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	mustSettle(t)(eng.DeleteTask(week.Standup.ID))
	week.Clock.Advance(undo.DefaultTimeout - 1)
	if _, ok := eng.View().PendingUndo(); !ok {
		t.Fatal("entry expired early")
	}

	week.Clock.Advance(1)
	if _, ok := eng.View().PendingUndo(); ok {
		t.Fatal("entry should expire after the timeout")
	}
	if err := eng.Undo(context.Background()); !errors.Is(err, undo.ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestDismissUndo(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	if eng.DismissUndo() {
		t.Error("nothing to dismiss yet")
	}
	mustSettle(t)(eng.DeleteTask(week.Standup.ID))
	if !eng.DismissUndo() {
		t.Error("expected a pending entry to dismiss")
	}
	if err := eng.Undo(context.Background()); !errors.Is(err, undo.ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestUndoRestoreFailure(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	mustSettle(t)(eng.DeleteTask(week.Standup.ID))
	week.Gateway.FailNext(gateway.OpInsert, errBackend)

	err := eng.Undo(context.Background())
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected the insert error, got %v", err)
	}
	for _, task := range eng.View().Day(testutil.Monday) {
		if task.Title == "Standup" {
			t.Error("a failed restore must not add the task locally")
		}
	}
}

func TestUndoRestoreAvoidsKeyCollision(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	mustSettle(t)(eng.DeleteTask(week.Standup.ID))
	// Groceries ends up on standup's old key
	mustSettle(t)(eng.ReorderTask(week.Review.ID, week.Groceries.ID, types.Above))
	mustSettle(t)(eng.ReorderTask(week.Groceries.ID, week.Review.ID, types.Above))

	if err := eng.Undo(context.Background()); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	testutil.AssertDistinctKeys(t, eng.View().Tasks())
}
