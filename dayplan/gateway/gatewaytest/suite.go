// Package gatewaytest is a conformance suite every gateway.Gateway
// implementation runs from its own tests.
package gatewaytest

import (
	"context"
	"errors"
	"testing"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/types"
)

// Factory returns a fresh, empty gateway for one subtest
type Factory func(t *testing.T) gateway.Gateway

func draft(owner string, date types.Date, title string, key float64, category string) types.TaskDraft {
	return types.TaskDraft{
		OwnerID:   owner,
		Date:      date,
		Title:     title,
		Priority:  types.PriorityNormal,
		SortOrder: key,
		Category:  types.StringPtr(category),
	}
}

func mustInsert(t *testing.T, gw gateway.Gateway, drafts ...types.TaskDraft) []types.Task {
	t.Helper()
	rows, err := gw.InsertTasks(context.Background(), drafts)
	if err != nil {
		t.Fatalf("InsertTasks() error = %v", err)
	}
	if len(rows) != len(drafts) {
		t.Fatalf("expected %d rows, got %d", len(drafts), len(rows))
	}
	return rows
}

func mustList(t *testing.T, gw gateway.Gateway, owner string, from, to types.Date) []types.Task {
	t.Helper()
	rows, err := gw.ListTasks(context.Background(), owner, from, to)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	return rows
}

func byID(rows []types.Task, id string) (types.Task, bool) {
	for _, r := range rows {
		if r.ID == id {
			return r, true
		}
	}
	return types.Task{}, false
}

// Run executes the suite
func Run(t *testing.T, newGateway Factory) {
	ctx := context.Background()

	t.Run("insert assigns ids and keeps fields", func(t *testing.T) {
		gw := newGateway(t)
		notes := "two of them"
		every := 7
		until := types.Date("2024-04-01")
		d := draft("alice", "2024-03-01", "Buy milk", 1000, "errands")
		d.Notes = &notes
		d.Priority = types.PriorityHigh
		d.RepeatEveryDays = &every
		d.RepeatUntil = &until

		rows := mustInsert(t, gw, d, draft("alice", "2024-03-01", "Walk", 2000, ""))
		if rows[0].ID == "" || rows[1].ID == "" || rows[0].ID == rows[1].ID {
			t.Fatalf("expected distinct ids, got %q and %q", rows[0].ID, rows[1].ID)
		}
		if rows[0].CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}

		got, ok := byID(mustList(t, gw, "alice", "2024-03-01", "2024-03-01"), rows[0].ID)
		if !ok {
			t.Fatal("inserted row not listed")
		}
		if got.Title != "Buy milk" || got.CategoryName() != "errands" || got.Priority != types.PriorityHigh {
			t.Errorf("unexpected row: %+v", got)
		}
		if got.Notes == nil || *got.Notes != notes {
			t.Errorf("notes not persisted: %v", got.Notes)
		}
		if got.RepeatEveryDays == nil || *got.RepeatEveryDays != 7 || got.RepeatUntil == nil || *got.RepeatUntil != until {
			t.Errorf("recurrence not persisted: %+v", got)
		}
		if got.SortOrder != 1000 {
			t.Errorf("expected sort order 1000, got %v", got.SortOrder)
		}

		second, _ := byID(mustList(t, gw, "alice", "2024-03-01", "2024-03-01"), rows[1].ID)
		if second.Category != nil {
			t.Errorf("expected nil category, got %q", *second.Category)
		}
	})

	t.Run("insert rejects invalid drafts", func(t *testing.T) {
		gw := newGateway(t)
		_, err := gw.InsertTasks(ctx, []types.TaskDraft{draft("alice", "2024-03-01", "  ", 1, "")})
		if !errors.Is(err, types.ErrEmptyTitle) {
			t.Errorf("expected ErrEmptyTitle, got %v", err)
		}
	})

	t.Run("list filters by owner and range and orders rows", func(t *testing.T) {
		gw := newGateway(t)
		mustInsert(t, gw,
			draft("alice", "2024-03-02", "c", 500, ""),
			draft("alice", "2024-03-01", "b", 2000, ""),
			draft("alice", "2024-03-01", "a", 1000, ""),
			draft("alice", "2024-03-05", "out of range", 1, ""),
			draft("bob", "2024-03-01", "not mine", 1, ""),
		)

		rows := mustList(t, gw, "alice", "2024-03-01", "2024-03-04")
		var titles []string
		for _, r := range rows {
			titles = append(titles, r.Title)
		}
		want := []string{"a", "b", "c"}
		if len(titles) != len(want) {
			t.Fatalf("expected %v, got %v", want, titles)
		}
		for i := range want {
			if titles[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, titles)
			}
		}

		if _, err := gw.ListTasks(ctx, "alice", "2024-03-05", "2024-03-01"); !errors.Is(err, gateway.ErrInvalidRange) {
			t.Errorf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("update applies partial fields", func(t *testing.T) {
		gw := newGateway(t)
		rows := mustInsert(t, gw, draft("alice", "2024-03-01", "a", 1000, "work"))
		id := rows[0].ID

		done := true
		date := types.Date("2024-03-03")
		key := 1234.0
		patch := types.TaskPatch{Done: &done, Date: &date, SortOrder: &key, SetCategory: true}
		if err := gw.UpdateTask(ctx, id, "alice", patch); err != nil {
			t.Fatalf("UpdateTask() error = %v", err)
		}

		got, ok := byID(mustList(t, gw, "alice", "2024-03-01", "2024-03-31"), id)
		if !ok {
			t.Fatal("row disappeared")
		}
		if !got.Done || got.Date != date || got.SortOrder != key || got.Category != nil || got.Title != "a" {
			t.Errorf("unexpected row after update: %+v", got)
		}
	})

	t.Run("update and delete are owner scoped", func(t *testing.T) {
		gw := newGateway(t)
		rows := mustInsert(t, gw, draft("alice", "2024-03-01", "a", 1000, ""))
		id := rows[0].ID

		title := "stolen"
		if err := gw.UpdateTask(ctx, id, "bob", types.TaskPatch{Title: &title}); !errors.Is(err, gateway.ErrNotFound) {
			t.Errorf("expected ErrNotFound for foreign update, got %v", err)
		}
		if err := gw.DeleteTask(ctx, id, "bob"); !errors.Is(err, gateway.ErrNotFound) {
			t.Errorf("expected ErrNotFound for foreign delete, got %v", err)
		}
		if err := gw.DeleteTask(ctx, "missing", "alice"); !errors.Is(err, gateway.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing row, got %v", err)
		}

		got, _ := byID(mustList(t, gw, "alice", "2024-03-01", "2024-03-01"), id)
		if got.Title != "a" {
			t.Errorf("foreign update leaked: %+v", got)
		}

		if err := gw.DeleteTask(ctx, id, "alice"); err != nil {
			t.Fatalf("DeleteTask() error = %v", err)
		}
		if rows := mustList(t, gw, "alice", "2024-03-01", "2024-03-01"); len(rows) != 0 {
			t.Errorf("expected no rows after delete, got %d", len(rows))
		}
	})

	t.Run("bulk category rename and clear", func(t *testing.T) {
		gw := newGateway(t)
		mustInsert(t, gw,
			draft("alice", "2024-03-01", "a", 1, "work"),
			draft("alice", "2024-03-09", "b", 1, "work"),
			draft("alice", "2024-03-01", "c", 2, "home"),
			draft("bob", "2024-03-01", "d", 1, "work"),
		)

		office := "office"
		if err := gw.BulkUpdateCategory(ctx, "alice", "work", &office); err != nil {
			t.Fatalf("BulkUpdateCategory() error = %v", err)
		}
		for _, r := range mustList(t, gw, "alice", "2024-03-01", "2024-03-31") {
			if r.CategoryName() == "work" {
				t.Errorf("row %s still in old category", r.Title)
			}
		}
		for _, r := range mustList(t, gw, "bob", "2024-03-01", "2024-03-31") {
			if r.CategoryName() != "work" {
				t.Errorf("foreign row %s was renamed", r.Title)
			}
		}

		if err := gw.BulkUpdateCategory(ctx, "alice", "office", nil); err != nil {
			t.Fatalf("BulkUpdateCategory() clear error = %v", err)
		}
		cleared := 0
		for _, r := range mustList(t, gw, "alice", "2024-03-01", "2024-03-31") {
			if r.Category == nil {
				cleared++
			}
		}
		if cleared != 2 {
			t.Errorf("expected 2 uncategorized rows, got %d", cleared)
		}
	})
}
