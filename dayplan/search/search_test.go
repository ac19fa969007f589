package search_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/dayplan/dayplan/search"
	"github.com/arthur-debert/dayplan/testutil"
	"github.com/arthur-debert/dayplan/types"
)

type taskList []types.Task

func (l taskList) Tasks() []types.Task { return l }

func titles(results []search.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Task.Title)
	}
	return out
}

func TestSearchFixture(t *testing.T) {
	week := testutil.LoadWeekData(t)
	s := search.New(taskList(week.Tasks()))

	t.Run("empty query", func(t *testing.T) {
		results, err := s.Search(search.Options{})
		if err != nil || len(results) != 0 {
			t.Errorf("expected no results, got %v, %v", results, err)
		}
	})

	t.Run("case insensitive title", func(t *testing.T) {
		results, err := s.Search(search.Options{Query: "REVIEW", Fields: []search.Field{search.FieldTitle}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].Task.ID != week.Review.ID {
			t.Fatalf("expected the code review, got %v", titles(results))
		}
		if results[0].MatchType != search.MatchPartialTitle || results[0].Score != 0.7 {
			t.Errorf("unexpected ranking %s %.2f", results[0].MatchType, results[0].Score)
		}
	})

	t.Run("case sensitive", func(t *testing.T) {
		results, _ := s.Search(search.Options{Query: "REVIEW", CaseSensitive: true})
		if len(results) != 0 {
			t.Errorf("expected no results, got %v", titles(results))
		}
	})

	t.Run("exact match", func(t *testing.T) {
		results, _ := s.Search(search.Options{Query: "standup", ExactMatch: true})
		if len(results) != 1 || results[0].MatchType != search.MatchExactTitle || results[0].Score != 1.0 {
			t.Fatalf("expected one exact title hit, got %+v", results)
		}
		if results, _ := s.Search(search.Options{Query: "stand", ExactMatch: true}); len(results) != 0 {
			t.Errorf("a prefix is not an exact match: %v", titles(results))
		}
	})

	t.Run("notes", func(t *testing.T) {
		results, _ := s.Search(search.Options{Query: "milk"})
		if len(results) != 1 || results[0].Task.ID != week.Groceries.ID {
			t.Fatalf("expected groceries, got %v", titles(results))
		}
		if diff := cmp.Diff([]search.Field{search.FieldNotes}, results[0].MatchedFields); diff != "" {
			t.Errorf("matched fields (-want +got):\n%s", diff)
		}
		if results[0].MatchType != search.MatchNotes {
			t.Errorf("unexpected match type %s", results[0].MatchType)
		}
	})

	t.Run("category", func(t *testing.T) {
		results, _ := s.Search(search.Options{Query: "errands", Fields: []search.Field{search.FieldCategory}})
		if diff := cmp.Diff([]string{"Buy groceries"}, titles(results)); diff != "" {
			t.Errorf("results (-want +got):\n%s", diff)
		}
	})

	t.Run("highlight", func(t *testing.T) {
		results, _ := s.Search(search.Options{Query: "e", Fields: []search.Field{search.FieldTitle}, Highlight: true})
		var got string
		for _, r := range results {
			if r.Task.ID == week.Review.ID {
				got = r.Highlights[search.FieldTitle]
			}
		}
		if got != "Cod**e** r**e**vi**e**w" {
			t.Errorf("unexpected highlight %q", got)
		}

		results, _ = s.Search(search.Options{
			Query: "gym", Fields: []search.Field{search.FieldTitle},
			Highlight: true, StartMarker: "[", EndMarker: "]",
		})
		if len(results) != 1 || results[0].Highlights[search.FieldTitle] != "[Gym]" {
			t.Errorf("unexpected highlight %+v", results)
		}
	})
}

func TestSearchRanking(t *testing.T) {
	tasks := taskList{
		{ID: "a", Title: "Buy paint", Notes: types.StringPtr("for the gym")},
		{ID: "b", Title: "Gym"},
		{ID: "c", Title: "Gym shoes"},
		{ID: "d", Title: "Read"},
	}
	s := search.New(tasks)

	results, err := s.Search(search.Options{Query: "gym"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"Gym", "Gym shoes", "Buy paint"}, titles(results)); diff != "" {
		t.Errorf("ranking (-want +got):\n%s", diff)
	}
	scores := []float64{results[0].Score, results[1].Score, results[2].Score}
	if diff := cmp.Diff([]float64{1.0, 0.8, 0.3}, scores); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}

	t.Run("max results", func(t *testing.T) {
		results, _ := s.Search(search.Options{Query: "gym", MaxResults: 2})
		if diff := cmp.Diff([]string{"Gym", "Gym shoes"}, titles(results)); diff != "" {
			t.Errorf("results (-want +got):\n%s", diff)
		}
	})

	t.Run("ties keep provider order", func(t *testing.T) {
		s := search.New(taskList{{ID: "x", Title: "Walk dog"}, {ID: "y", Title: "Walk cat"}})
		results, _ := s.Search(search.Options{Query: "walk"})
		if diff := cmp.Diff([]string{"Walk dog", "Walk cat"}, titles(results)); diff != "" {
			t.Errorf("results (-want +got):\n%s", diff)
		}
	})
}

func TestSearchErrors(t *testing.T) {
	_, err := search.New(taskList{}).Search(search.Options{Query: "x", Fields: []search.Field{"body"}})
	if err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Errorf("expected unknown field error, got %v", err)
	}

	_, err = search.New(nil).Search(search.Options{Query: "x"})
	if err == nil {
		t.Error("expected an error without a provider")
	}
}
