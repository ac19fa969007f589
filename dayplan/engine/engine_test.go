package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/dayplan/dayplan/engine"
	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/ordering"
	"github.com/arthur-debert/dayplan/testutil"
	"github.com/arthur-debert/dayplan/types"
)

var errBackend = errors.New("backend unavailable")

// mustSettle returns a checker for a command's (pending, error) pair, so
// calls read mustSettle(t)(eng.ToggleTask(id))
func mustSettle(t *testing.T) func(*engine.Pending, error) {
	t.Helper()
	return func(p *engine.Pending, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("command error = %v", err)
		}
		if err := p.Wait(); err != nil {
			t.Fatalf("sync error = %v", err)
		}
	}
}

func row(t *testing.T, gw *gateway.Memory, id string) types.Task {
	t.Helper()
	for _, r := range gw.Rows() {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("row %s not in gateway", id)
	return types.Task{}
}

func TestNew(t *testing.T) {
	if _, err := engine.New(gateway.NewMemory(), ""); !errors.Is(err, types.ErrMissingOwner) {
		t.Errorf("expected ErrMissingOwner, got %v", err)
	}
	if _, err := engine.New(nil, "alice"); err == nil {
		t.Error("expected error for nil gateway")
	}
}

func TestToggleTask(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	p, err := eng.ToggleTask(week.Standup.ID)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}

	// Visible before the remote call settles
	got, _ := eng.View().Task(week.Standup.ID)
	if !got.Done {
		t.Fatal("toggle should apply locally at once")
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// Joins the done partition behind the report
	testutil.AssertDayOrder(t, eng, testutil.Monday,
		week.Pitch.ID, week.Review.ID, week.Groceries.ID, week.Report.ID, week.Standup.ID)
	if want := float64(testutil.Now.UnixMilli()); got.SortOrder != want {
		t.Errorf("expected append key %v, got %v", want, got.SortOrder)
	}

	remote := row(t, week.Gateway, week.Standup.ID)
	if !remote.Done || remote.SortOrder != got.SortOrder {
		t.Errorf("remote row not updated: %+v", remote)
	}
	if diff := cmp.Diff([]string{week.Standup.ID}, week.Hooks.Completed()); diff != "" {
		t.Errorf("TaskCompleted mismatch (-want +got):\n%s", diff)
	}

	if _, err := eng.ToggleTask("missing"); !errors.Is(err, engine.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDayCompleted(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	mustSettle(t)(eng.ToggleTask(week.Laundry.ID))
	if len(week.Hooks.CompletedDays()) != 0 {
		t.Fatal("day is not complete yet")
	}

	mustSettle(t)(eng.ToggleTask(week.Gym.ID))
	if diff := cmp.Diff([]types.Date{testutil.Tuesday}, week.Hooks.CompletedDays()); diff != "" {
		t.Fatalf("DayCompleted mismatch (-want +got):\n%s", diff)
	}

	// Reordering inside a complete day does not celebrate again
	mustSettle(t)(eng.ReorderTask(week.Gym.ID, week.Laundry.ID, types.Below))
	if len(week.Hooks.CompletedDays()) != 1 {
		t.Error("celebrated twice without becoming incomplete")
	}

	// Incomplete again resets the flag
	mustSettle(t)(eng.ToggleTask(week.Gym.ID))
	if eng.View().Celebrated(testutil.Tuesday) {
		t.Error("flag should reset when the day becomes incomplete")
	}
	mustSettle(t)(eng.ToggleTask(week.Gym.ID))
	if diff := cmp.Diff([]types.Date{testutil.Tuesday, testutil.Tuesday}, week.Hooks.CompletedDays()); diff != "" {
		t.Errorf("DayCompleted mismatch (-want +got):\n%s", diff)
	}
}

func TestEditTask(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	t.Run("title and new category", func(t *testing.T) {
		title := "Daily standup"
		category := "meetings"
		mustSettle(t)(eng.EditTask(week.Standup.ID, types.TaskPatch{
			Title: &title, SetCategory: true, Category: &category,
		}))

		got, _ := eng.View().Task(week.Standup.ID)
		if got.Title != title || got.CategoryName() != category || got.SortOrder != week.Standup.SortOrder {
			t.Errorf("unexpected task after edit: %+v", got)
		}
		if cats := eng.View().Categories(); cats[len(cats)-1] != category {
			t.Errorf("new category not added to the set: %v", cats)
		}
		if remote := row(t, week.Gateway, week.Standup.ID); remote.Title != title {
			t.Errorf("remote title not updated: %+v", remote)
		}
	})

	t.Run("priority change appends to the new partition", func(t *testing.T) {
		high := types.PriorityHigh
		mustSettle(t)(eng.EditTask(week.Review.ID, types.TaskPatch{Priority: &high}))
		testutil.AssertDayOrder(t, eng, testutil.Monday,
			week.Pitch.ID, week.Review.ID, week.Standup.ID, week.Groceries.ID, week.Report.ID)
		testutil.AssertDistinctKeys(t, eng.View().Tasks())
	})

	t.Run("clearing notes", func(t *testing.T) {
		mustSettle(t)(eng.EditTask(week.Groceries.ID, types.TaskPatch{SetNotes: true}))
		if got, _ := eng.View().Task(week.Groceries.ID); got.Notes != nil {
			t.Errorf("notes not cleared: %v", *got.Notes)
		}
	})

	t.Run("validation is synchronous", func(t *testing.T) {
		calls := week.Gateway.Calls(gateway.OpUpdate)
		empty := "  "
		if _, err := eng.EditTask(week.Standup.ID, types.TaskPatch{Title: &empty}); !errors.Is(err, types.ErrEmptyTitle) {
			t.Errorf("expected ErrEmptyTitle, got %v", err)
		}
		if _, err := eng.EditTask("missing", types.TaskPatch{}); !errors.Is(err, engine.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
		mustSettle(t)(eng.EditTask(week.Standup.ID, types.TaskPatch{}))
		if week.Gateway.Calls(gateway.OpUpdate) != calls {
			t.Error("rejected or empty edits must not reach the gateway")
		}
	})
}

func TestReorderTask(t *testing.T) {
	tests := []struct {
		name    string
		moved   string
		over    string
		pos     types.Position
		wantKey float64
		want    []string
	}{
		{
			name:    "above the first task",
			moved:   "t-groceries",
			over:    "t-standup",
			pos:     types.Above,
			wantKey: 0,
			want:    []string{"t-pitch", "t-groceries", "t-standup", "t-review", "t-report"},
		},
		{
			name:    "below the last task",
			moved:   "t-standup",
			over:    "t-groceries",
			pos:     types.Below,
			wantKey: 4000,
			want:    []string{"t-pitch", "t-review", "t-groceries", "t-standup", "t-report"},
		},
		{
			name:    "between two tasks",
			moved:   "t-groceries",
			over:    "t-standup",
			pos:     types.Below,
			wantKey: 1500,
			want:    []string{"t-pitch", "t-standup", "t-groceries", "t-review", "t-report"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week := testutil.LoadWeek(t)
			eng := week.Engine

			mustSettle(t)(eng.ReorderTask(tt.moved, tt.over, tt.pos))

			testutil.AssertDayOrder(t, eng, testutil.Monday, tt.want...)
			got, _ := eng.View().Task(tt.moved)
			if got.SortOrder != tt.wantKey {
				t.Errorf("expected key %v, got %v", tt.wantKey, got.SortOrder)
			}
			if remote := row(t, week.Gateway, tt.moved); remote.SortOrder != tt.wantKey {
				t.Errorf("remote key %v, want %v", remote.SortOrder, tt.wantKey)
			}
			testutil.AssertDistinctKeys(t, eng.View().Tasks())
		})
	}
}

func TestReorderScenarios(t *testing.T) {
	t.Run("new task between 1000 and 2000 gets 1500", func(t *testing.T) {
		week := testutil.LoadWeek(t)
		eng := week.Engine

		rows, err := eng.AddTask(context.Background(), types.TaskDraft{Date: testutil.Tuesday, Title: "Call mum"})
		if err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
		mustSettle(t)(eng.ReorderTask(rows[0].ID, week.Laundry.ID, types.Below))

		got, _ := eng.View().Task(rows[0].ID)
		if got.SortOrder != 1500 {
			t.Errorf("expected 1500, got %v", got.SortOrder)
		}
		testutil.AssertDayOrder(t, eng, testutil.Tuesday, week.Laundry.ID, rows[0].ID, week.Gym.ID)
	})

	t.Run("no room renormalizes the partition first", func(t *testing.T) {
		week := testutil.LoadWeek(t)
		eng := week.Engine
		updates := week.Gateway.Calls(gateway.OpUpdate)

		mustSettle(t)(eng.ReorderTask(week.TightC.ID, week.TightB.ID, types.Above))

		testutil.AssertDayOrder(t, eng, testutil.Friday, week.TightA.ID, week.TightC.ID, week.TightB.ID)
		keys := map[string]float64{}
		for _, task := range eng.View().Day(testutil.Friday) {
			keys[task.ID] = task.SortOrder
		}
		want := map[string]float64{week.TightA.ID: 1000, week.TightB.ID: 2000, week.TightC.ID: 1500}
		if diff := cmp.Diff(want, keys); diff != "" {
			t.Errorf("keys mismatch (-want +got):\n%s", diff)
		}

		// One remote write per task of the partition
		if got := week.Gateway.Calls(gateway.OpUpdate) - updates; got != 3 {
			t.Errorf("expected 3 remote updates, got %d", got)
		}
		for id, key := range want {
			if remote := row(t, week.Gateway, id); remote.SortOrder != key {
				t.Errorf("remote key of %s = %v, want %v", id, remote.SortOrder, key)
			}
		}
	})

	t.Run("repeated halving stays distinct", func(t *testing.T) {
		week := testutil.LoadWeek(t)
		eng := week.Engine

		for i := 0; i < 15; i++ {
			mustSettle(t)(eng.ReorderTask(week.Groceries.ID, week.Standup.ID, types.Below))
			mustSettle(t)(eng.ReorderTask(week.Review.ID, week.Standup.ID, types.Below))
			testutil.AssertDistinctKeys(t, eng.View().Day(testutil.Monday))
		}
		testutil.AssertDayOrder(t, eng, testutil.Monday,
			week.Pitch.ID, week.Standup.ID, week.Review.ID, week.Groceries.ID, week.Report.ID)
	})
}

func TestReorderNoops(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine
	before := eng.View().Tasks()

	tests := []struct {
		name string
		over string
	}{
		{"onto itself", week.Standup.ID},
		{"other priority", week.Pitch.ID},
		{"other done flag", week.Report.ID},
		{"other day", week.Laundry.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustSettle(t)(eng.ReorderTask(week.Standup.ID, tt.over, types.Above))
		})
	}

	testutil.AssertTasksEqual(t, before, eng.View().Tasks(), "after no-op reorders")
	if week.Gateway.Calls(gateway.OpUpdate) != 0 {
		t.Error("no-op reorders must not reach the gateway")
	}

	if _, err := eng.ReorderTask(week.Standup.ID, "missing", types.Above); !errors.Is(err, engine.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := eng.ReorderTask(week.Standup.ID, week.Review.ID, "sideways"); err == nil {
		t.Error("expected error for invalid position")
	}
}

func TestMoveTask(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine
	appendKey := float64(testutil.Now.UnixMilli())

	mustSettle(t)(eng.MoveTask(testutil.Monday, testutil.Thursday, week.Standup.ID))

	testutil.AssertDayOrder(t, eng, testutil.Thursday, week.Standup.ID)
	moved, _ := eng.View().Task(week.Standup.ID)
	if moved.SortOrder != appendKey {
		t.Errorf("expected append key, got %v", moved.SortOrder)
	}
	if remote := row(t, week.Gateway, week.Standup.ID); remote.Date != testutil.Thursday {
		t.Errorf("remote date not updated: %+v", remote)
	}

	// And back: appended behind the tasks that stayed, none of which moved
	mustSettle(t)(eng.MoveTask(testutil.Thursday, testutil.Monday, week.Standup.ID))
	testutil.AssertDayOrder(t, eng, testutil.Monday,
		week.Pitch.ID, week.Review.ID, week.Groceries.ID, week.Standup.ID, week.Report.ID)
	for _, id := range []string{week.Review.ID, week.Groceries.ID} {
		got, _ := eng.View().Task(id)
		if got.SortOrder != week.ByID[id].SortOrder {
			t.Errorf("key of %s changed to %v", id, got.SortOrder)
		}
	}
	if len(eng.View().Day(testutil.Thursday)) != 0 {
		t.Error("thursday should be empty again")
	}
	testutil.AssertDistinctKeys(t, eng.View().Tasks())

	t.Run("errors and no-ops", func(t *testing.T) {
		if _, err := eng.MoveTask(testutil.Tuesday, testutil.Friday, week.Standup.ID); !errors.Is(err, engine.ErrDateMismatch) {
			t.Errorf("expected ErrDateMismatch, got %v", err)
		}
		if _, err := eng.MoveTask(testutil.Monday, "someday", week.Standup.ID); !errors.Is(err, engine.ErrInvalidDate) {
			t.Errorf("expected ErrInvalidDate, got %v", err)
		}
		calls := week.Gateway.Calls(gateway.OpUpdate)
		mustSettle(t)(eng.MoveTask(testutil.Monday, testutil.Monday, week.Standup.ID))
		if week.Gateway.Calls(gateway.OpUpdate) != calls {
			t.Error("same-day move must not reach the gateway")
		}
	})
}

func TestHandleDrop(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine

	t.Run("move next to a task on another day", func(t *testing.T) {
		payload, err := types.ParseDragPayload([]byte(`{"kind":"move","taskId":"t-groceries","fromDate":"2024-03-04"}`))
		if err != nil {
			t.Fatalf("ParseDragPayload() error = %v", err)
		}
		mustSettle(t)(eng.HandleDrop(payload, engine.DropTarget{
			Date: testutil.Tuesday, OverTaskID: week.Gym.ID, Position: types.Above,
		}))
		testutil.AssertDayOrder(t, eng, testutil.Tuesday, week.Laundry.ID, week.Groceries.ID, week.Gym.ID)
		if got, _ := eng.View().Task(week.Groceries.ID); got.SortOrder != 1500 {
			t.Errorf("expected key 1500, got %v", got.SortOrder)
		}
	})

	t.Run("reorder within the day", func(t *testing.T) {
		payload := types.ReorderPayload{TaskID: week.Review.ID, FromDate: testutil.Monday}
		mustSettle(t)(eng.HandleDrop(payload, engine.DropTarget{
			Date: testutil.Monday, OverTaskID: week.Standup.ID, Position: types.Above,
		}))
		testutil.AssertDayOrder(t, eng, testutil.Monday,
			week.Pitch.ID, week.Review.ID, week.Standup.ID, week.Report.ID)
	})

	t.Run("reorder onto another day is ignored", func(t *testing.T) {
		before := eng.View().Tasks()
		payload := types.ReorderPayload{TaskID: week.Review.ID, FromDate: testutil.Monday}
		mustSettle(t)(eng.HandleDrop(payload, engine.DropTarget{
			Date: testutil.Tuesday, OverTaskID: week.Laundry.ID,
		}))
		testutil.AssertTasksEqual(t, before, eng.View().Tasks(), "after ignored drop")
	})

	t.Run("invalid payloads", func(t *testing.T) {
		if _, err := eng.HandleDrop(nil, engine.DropTarget{}); !errors.Is(err, types.ErrInvalidPayload) {
			t.Errorf("expected ErrInvalidPayload, got %v", err)
		}
		payload := types.MovePayload{TaskID: week.Review.ID, FromDate: testutil.Friday}
		if _, err := eng.HandleDrop(payload, engine.DropTarget{Date: testutil.Tuesday}); !errors.Is(err, engine.ErrDateMismatch) {
			t.Errorf("expected ErrDateMismatch, got %v", err)
		}
	})
}

func TestRollbackOnSyncFailure(t *testing.T) {
	tests := []struct {
		name string
		op   string
		run  func(w *testutil.Week) (*engine.Pending, error)
	}{
		{"toggle", gateway.OpUpdate, func(w *testutil.Week) (*engine.Pending, error) {
			return w.Engine.ToggleTask(w.Standup.ID)
		}},
		{"edit", gateway.OpUpdate, func(w *testutil.Week) (*engine.Pending, error) {
			title := "renamed"
			return w.Engine.EditTask(w.Standup.ID, types.TaskPatch{Title: &title, SetCategory: true, Category: types.StringPtr("new")})
		}},
		{"delete", gateway.OpDelete, func(w *testutil.Week) (*engine.Pending, error) {
			return w.Engine.DeleteTask(w.Groceries.ID)
		}},
		{"move", gateway.OpUpdate, func(w *testutil.Week) (*engine.Pending, error) {
			return w.Engine.MoveTask(testutil.Monday, testutil.Thursday, w.Standup.ID)
		}},
		{"reorder with renormalization", gateway.OpUpdate, func(w *testutil.Week) (*engine.Pending, error) {
			return w.Engine.ReorderTask(w.TightC.ID, w.TightB.ID, types.Above)
		}},
		{"rename category", gateway.OpBulkUpdate, func(w *testutil.Week) (*engine.Pending, error) {
			return w.Engine.RenameCategory("work", "errands")
		}},
		{"delete category", gateway.OpBulkUpdate, func(w *testutil.Week) (*engine.Pending, error) {
			return w.Engine.DeleteCategory("work")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week := testutil.LoadWeek(t)
			eng := week.Engine
			if err := eng.SelectCategory("work"); err != nil {
				t.Fatalf("SelectCategory() error = %v", err)
			}

			before := eng.View().Tasks()
			beforeCats := eng.View().Categories()
			week.Gateway.FailNext(tt.op, errBackend)

			p, err := tt.run(week)
			if err != nil {
				t.Fatalf("command error = %v", err)
			}
			err = p.Wait()
			if !errors.Is(err, engine.ErrSyncFailed) || !errors.Is(err, errBackend) {
				t.Fatalf("expected ErrSyncFailed wrapping the backend error, got %v", err)
			}

			testutil.AssertTasksEqual(t, before, eng.View().Tasks(), "after rollback")
			if diff := cmp.Diff(beforeCats, eng.View().Categories()); diff != "" {
				t.Errorf("categories not restored (-want +got):\n%s", diff)
			}
			if selected, _ := eng.View().SelectedCategory(); selected != "work" {
				t.Errorf("selection not restored: %q", selected)
			}
			if _, ok := eng.View().PendingUndo(); ok {
				t.Error("a failed mutation must not arm undo")
			}
		})
	}
}

func TestSyncTimeout(t *testing.T) {
	week := testutil.LoadWeek(t, engine.WithSyncTimeout(20*time.Millisecond))
	week.Gateway.Hold()
	t.Cleanup(week.Gateway.Release)

	before := week.Engine.View().Tasks()
	p, err := week.Engine.ToggleTask(week.Standup.ID)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}
	err = p.Wait()
	if !errors.Is(err, engine.ErrSyncFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout rollback, got %v", err)
	}
	testutil.AssertTasksEqual(t, before, week.Engine.View().Tasks(), "after timeout")
}

// failOn fails UpdateTask for one id
type failOn struct {
	gateway.Gateway
	id string
}

func (f *failOn) UpdateTask(ctx context.Context, id, ownerID string, patch types.TaskPatch) error {
	if id == f.id {
		return errBackend
	}
	return f.Gateway.UpdateTask(ctx, id, ownerID, patch)
}

func TestInterleavedMutationsOnDisjointDays(t *testing.T) {
	data := testutil.LoadWeekData(t)
	mem := gateway.NewMemory()
	mem.Seed(data.Tasks()...)
	clock := testutil.NewClock(testutil.Now)

	eng, err := engine.New(&failOn{Gateway: mem, id: data.Standup.ID}, testutil.Owner,
		engine.WithClock(clock.Now),
		engine.WithAllocator(ordering.New(ordering.WithClock(clock.Now))),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(eng.Close)
	if err := eng.Load(context.Background(), testutil.WeekStart, testutil.WeekEnd); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	mem.Hold()
	failing, err := eng.ToggleTask(data.Standup.ID)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}
	passing, err := eng.ToggleTask(data.Laundry.ID)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}
	mem.Release()

	var wg sync.WaitGroup
	var failErr, passErr error
	wg.Add(2)
	go func() { defer wg.Done(); failErr = failing.Wait() }()
	go func() { defer wg.Done(); passErr = passing.Wait() }()
	wg.Wait()

	if !errors.Is(failErr, engine.ErrSyncFailed) {
		t.Errorf("expected failure for standup, got %v", failErr)
	}
	if passErr != nil {
		t.Errorf("laundry toggle should succeed, got %v", passErr)
	}

	standup, _ := eng.View().Task(data.Standup.ID)
	laundry, _ := eng.View().Task(data.Laundry.ID)
	if standup.Done {
		t.Error("standup should be rolled back")
	}
	if !laundry.Done {
		t.Error("laundry rollback leaked from the other day")
	}
}

// gatedFail holds UpdateTask for one id until release is closed, then
// fails it
type gatedFail struct {
	gateway.Gateway
	id      string
	release chan struct{}
}

func (g *gatedFail) UpdateTask(ctx context.Context, id, ownerID string, patch types.TaskPatch) error {
	if id == g.id {
		<-g.release
		return errBackend
	}
	return g.Gateway.UpdateTask(ctx, id, ownerID, patch)
}

func TestInterleavedMutationsOnSameDay(t *testing.T) {
	data := testutil.LoadWeekData(t)
	mem := gateway.NewMemory()
	mem.Seed(data.Tasks()...)
	clock := testutil.NewClock(testutil.Now)
	gw := &gatedFail{Gateway: mem, id: data.Standup.ID, release: make(chan struct{})}

	eng, err := engine.New(gw, testutil.Owner,
		engine.WithClock(clock.Now),
		engine.WithAllocator(ordering.New(ordering.WithClock(clock.Now))),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(eng.Close)
	if err := eng.Load(context.Background(), testutil.WeekStart, testutil.WeekEnd); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var once sync.Once
	release := func() { once.Do(func() { close(gw.release) }) }
	t.Cleanup(release)

	failing, err := eng.ToggleTask(data.Standup.ID)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}

	// Pitch shares Monday with Standup but sits in the high priority partition
	title := "Pitch v2"
	mustSettle(t)(eng.EditTask(data.Pitch.ID, types.TaskPatch{Title: &title}))
	mustSettle(t)(eng.ReorderTask(data.Groceries.ID, data.Review.ID, types.Above))

	release()
	if err := failing.Wait(); !errors.Is(err, engine.ErrSyncFailed) {
		t.Fatalf("expected the standup toggle to fail, got %v", err)
	}

	standup, _ := eng.View().Task(data.Standup.ID)
	if standup.Done || standup.SortOrder != data.Standup.SortOrder {
		t.Errorf("standup not rolled back: %+v", standup)
	}
	pitch, _ := eng.View().Task(data.Pitch.ID)
	if pitch.Title != title {
		t.Errorf("confirmed edit was rolled back, local title %q", pitch.Title)
	}
	if backend := row(t, mem, data.Pitch.ID); backend.Title != pitch.Title {
		t.Errorf("store diverged from backend: %q vs %q", pitch.Title, backend.Title)
	}
	for _, id := range []string{data.Groceries.ID, data.Review.ID} {
		local, _ := eng.View().Task(id)
		if backend := row(t, mem, id); local.SortOrder != backend.SortOrder {
			t.Errorf("%s key diverged: local %v backend %v", local.Title, local.SortOrder, backend.SortOrder)
		}
	}
}

func TestLoad(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine
	before := eng.View().Tasks()

	week.Gateway.FailNext(gateway.OpList, errBackend)
	if err := eng.Load(context.Background(), testutil.WeekStart, testutil.WeekEnd); !errors.Is(err, errBackend) {
		t.Fatalf("expected load error, got %v", err)
	}
	testutil.AssertTasksEqual(t, before, eng.View().Tasks(), "after failed load")

	if err := eng.Load(context.Background(), testutil.WeekEnd, testutil.WeekStart); !errors.Is(err, gateway.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if err := eng.Load(context.Background(), "monday", testutil.WeekEnd); !errors.Is(err, engine.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}

	// A reload picks up remote changes of the range
	week.Gateway.Seed(types.Task{
		ID: "t-remote", OwnerID: testutil.Owner, Date: testutil.Thursday, Title: "From another device",
		Priority: types.PriorityNormal, SortOrder: 1000,
	})
	if err := eng.Load(context.Background(), testutil.Thursday, testutil.Thursday); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	testutil.AssertDayOrder(t, eng, testutil.Thursday, "t-remote")
	if len(eng.View().Tasks()) != len(before)+1 {
		t.Error("reloading one day should keep the others")
	}
}

func TestSeed(t *testing.T) {
	week := testutil.LoadWeek(t)
	eng := week.Engine
	if err := eng.SelectCategory("someday"); err != nil {
		t.Fatalf("SelectCategory() error = %v", err)
	}

	eng.Seed([]types.Task{week.Laundry, week.Dentist, week.BobTask}, []string{"garden"})

	if diff := cmp.Diff([]string{week.Laundry.ID, week.Dentist.ID}, testutil.IDs(eng.View().Tasks())); diff != "" {
		t.Errorf("seeded tasks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"garden", "home"}, eng.View().Categories()); diff != "" {
		t.Errorf("seeded categories mismatch (-want +got):\n%s", diff)
	}
	if _, ok := eng.View().SelectedCategory(); ok {
		t.Error("selection of a vanished category should be cleared")
	}
	if !eng.View().Celebrated(testutil.Wednesday) {
		t.Error("seeded complete day should count as celebrated")
	}
}

func TestDayRollover(t *testing.T) {
	week := testutil.LoadWeek(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- week.Engine.RunDayRollover(ctx, 5*time.Millisecond) }()

	week.Clock.Set(testutil.Now.Add(24 * time.Hour))

	deadline := time.Now().Add(2 * time.Second)
	for len(week.Hooks.DayChanges()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if diff := cmp.Diff([]types.Date{testutil.Tuesday}, week.Hooks.DayChanges()); diff != "" {
		t.Errorf("DayChanged mismatch (-want +got):\n%s", diff)
	}
	if week.Engine.View().Today() != testutil.Tuesday {
		t.Errorf("expected today %s, got %s", testutil.Tuesday, week.Engine.View().Today())
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStoreChangedHook(t *testing.T) {
	week := testutil.LoadWeek(t)
	week.Gateway.FailNext(gateway.OpUpdate, errBackend)

	p, err := week.Engine.ToggleTask(week.Standup.ID)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}
	_ = p.Wait()

	// once for the apply, once for the rollback
	if got := week.Hooks.Changes(); got != 2 {
		t.Errorf("expected 2 StoreChanged calls, got %d", got)
	}
}
