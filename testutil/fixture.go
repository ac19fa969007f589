// Package testutil provides a seeded week of tasks for engine and CLI tests
package testutil

import (
	"context"
	_ "embed"
	"encoding/json"
	"testing"
	"time"

	"github.com/arthur-debert/dayplan/dayplan/engine"
	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/ordering"
	"github.com/arthur-debert/dayplan/dayplan/undo"
	"github.com/arthur-debert/dayplan/types"
)

//go:embed testdata/week.json
var weekJSON []byte

// Fixed points of the fixture
const (
	Owner     = "alice"
	Other     = "bob"
	WeekStart = types.Date("2024-03-04")
	WeekEnd   = types.Date("2024-03-10")
	Monday    = types.Date("2024-03-04")
	Tuesday   = types.Date("2024-03-05")
	Wednesday = types.Date("2024-03-06")
	Thursday  = types.Date("2024-03-07")
	Friday    = types.Date("2024-03-08")
)

// Now is the fixture clock: Monday 10:00 UTC
var Now = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

// WeekData provides typed access to the fixture tasks
type WeekData struct {
	// Monday: one high priority task, three normal ones, one done
	Pitch     types.Task // high priority, work
	Standup   types.Task // key 1000, work
	Review    types.Task // key 2000, work
	Groceries types.Task // key 3000, errands, has notes
	Report    types.Task // done, work

	// Tuesday
	Laundry types.Task // home
	Gym     types.Task // uncategorized

	// Wednesday: every task done
	Dentist types.Task

	// Friday: keys 1000, 1001, 3000, no room between A and B
	TightA types.Task
	TightB types.Task
	TightC types.Task

	// Owned by Other, never visible to Owner's engine
	BobTask types.Task

	// ByID holds every fixture task
	ByID map[string]types.Task

	// Categories is the expected category set after loading
	Categories []string
}

type fixtureData struct {
	Owner      string       `json:"owner"`
	From       types.Date   `json:"from"`
	To         types.Date   `json:"to"`
	Categories []string     `json:"categories"`
	Tasks      []types.Task `json:"tasks"`
}

// Week is a loaded fixture: the gateway holding the rows, the engine
// loaded from it and a hook recorder wired into the engine
type Week struct {
	*WeekData
	Gateway *gateway.Memory
	Engine  *engine.Engine
	Hooks   *HookRecorder
	Clock   *Clock
}

// LoadWeekData parses the fixture without building an engine
func LoadWeekData(t *testing.T) *WeekData {
	t.Helper()

	var fixture fixtureData
	if err := json.Unmarshal(weekJSON, &fixture); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	week := &WeekData{
		ByID:       make(map[string]types.Task, len(fixture.Tasks)),
		Categories: fixture.Categories,
	}
	for _, task := range fixture.Tasks {
		week.ByID[task.ID] = task

		switch task.ID {
		case "t-pitch":
			week.Pitch = task
		case "t-standup":
			week.Standup = task
		case "t-review":
			week.Review = task
		case "t-groceries":
			week.Groceries = task
		case "t-report":
			week.Report = task
		case "t-laundry":
			week.Laundry = task
		case "t-gym":
			week.Gym = task
		case "t-dentist":
			week.Dentist = task
		case "t-tight-a":
			week.TightA = task
		case "t-tight-b":
			week.TightB = task
		case "t-tight-c":
			week.TightC = task
		case "t-bob":
			week.BobTask = task
		}
	}
	return week
}

// Tasks returns every fixture task
func (w *WeekData) Tasks() []types.Task {
	out := make([]types.Task, 0, len(w.ByID))
	for _, task := range w.ByID {
		out = append(out, task.Clone())
	}
	gateway.SortRows(out)
	return out
}

// LoadWeek seeds a memory gateway with the fixture and returns an engine
// for Owner loaded with WeekStart..WeekEnd. The engine uses the fixture
// clock and a manual undo timer; extra options are applied last.
func LoadWeek(t *testing.T, opts ...engine.Option) *Week {
	t.Helper()

	data := LoadWeekData(t)
	gw := gateway.NewMemory()
	gw.Seed(data.Tasks()...)

	clock := NewClock(Now)
	hooks := &HookRecorder{}
	base := []engine.Option{
		engine.WithClock(clock.Now),
		engine.WithAllocator(ordering.New(ordering.WithClock(clock.Now))),
		engine.WithUndoManager(undo.NewManager(
			undo.WithAfterFunc(clock.AfterFunc),
			undo.WithClock(clock.Now),
		)),
		engine.WithHooks(hooks.Hooks()),
	}

	eng, err := engine.New(gw, Owner, append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(eng.Close)

	if err := eng.Load(context.Background(), WeekStart, WeekEnd); err != nil {
		t.Fatalf("failed to load week: %v", err)
	}
	for _, name := range data.Categories {
		if err := eng.AddCategory(name); err != nil {
			t.Fatalf("failed to add category %q: %v", name, err)
		}
	}
	hooks.Reset()

	return &Week{WeekData: data, Gateway: gw, Engine: eng, Hooks: hooks, Clock: clock}
}
