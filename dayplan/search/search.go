// Package search finds tasks by text in their title, notes or category and
// ranks the hits.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/dayplan/types"
)

// Field names a searchable task field
type Field string

const (
	FieldTitle    Field = "title"
	FieldNotes    Field = "notes"
	FieldCategory Field = "category"
)

// AllFields is searched when Options.Fields is empty
var AllFields = []Field{FieldTitle, FieldNotes, FieldCategory}

// MatchType describes where the best match was found
type MatchType string

const (
	MatchExactTitle   MatchType = "exact_title"
	MatchPartialTitle MatchType = "partial_title"
	MatchNotes        MatchType = "notes"
	MatchCategory     MatchType = "category"
)

// Options configures a search
type Options struct {
	// Query is the text to look for; an empty query matches nothing
	Query string

	// Fields restricts the search; empty means AllFields
	Fields []Field

	CaseSensitive bool

	// ExactMatch requires the whole field to equal the query
	ExactMatch bool

	// Highlight wraps every match in StartMarker/EndMarker ("**" when unset)
	Highlight   bool
	StartMarker string
	EndMarker   string

	// MaxResults limits the result count; 0 means no limit
	MaxResults int
}

// Result is one matching task
type Result struct {
	Task types.Task

	// Score is the relevance, 0 to 1, higher is better
	Score float64

	MatchType     MatchType
	MatchedFields []Field

	// Highlights maps matched fields to their marked-up text
	Highlights map[Field]string
}

// TaskProvider supplies the tasks to search. engine.View satisfies it.
type TaskProvider interface {
	Tasks() []types.Task
}

// Searcher ranks a provider's tasks against a query
type Searcher struct {
	provider TaskProvider
}

// New creates a searcher over provider
func New(provider TaskProvider) *Searcher {
	return &Searcher{provider: provider}
}

// Search returns matching tasks, best first. Equal scores keep the
// provider's order.
func (s *Searcher) Search(opts Options) ([]Result, error) {
	if opts.Query == "" {
		return []Result{}, nil
	}
	if s.provider == nil {
		return nil, fmt.Errorf("search: no task provider")
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = AllFields
	}
	for _, f := range fields {
		switch f {
		case FieldTitle, FieldNotes, FieldCategory:
		default:
			return nil, fmt.Errorf("search: unknown field %q", f)
		}
	}

	var results []Result
	for _, t := range s.provider.Tasks() {
		if r, ok := match(t, fields, opts); ok {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

func match(t types.Task, fields []Field, opts Options) (Result, bool) {
	r := Result{Task: t}
	for _, f := range fields {
		text := fieldText(t, f)
		if text == "" {
			continue
		}
		positions := findAll(text, opts.Query, opts.CaseSensitive)
		if len(positions) == 0 {
			continue
		}
		exact := len(positions) == 1 && len(opts.Query) == len(text)
		if opts.ExactMatch && !exact {
			continue
		}

		score, kind := scoreField(f, text, opts.Query, positions[0], exact)
		if score > r.Score {
			r.Score = score
			r.MatchType = kind
		}
		r.MatchedFields = append(r.MatchedFields, f)

		if opts.Highlight {
			if r.Highlights == nil {
				r.Highlights = make(map[Field]string)
			}
			r.Highlights[f] = highlight(text, len(opts.Query), positions, opts.StartMarker, opts.EndMarker)
		}
	}
	return r, len(r.MatchedFields) > 0
}

func fieldText(t types.Task, f Field) string {
	switch f {
	case FieldTitle:
		return t.Title
	case FieldNotes:
		if t.Notes != nil {
			return *t.Notes
		}
	case FieldCategory:
		return t.CategoryName()
	}
	return ""
}

// scoreField ranks title hits above category hits above notes hits, and
// boosts exact, leading and dominant matches
func scoreField(f Field, text, query string, first int, exact bool) (float64, MatchType) {
	var score float64
	var kind MatchType
	switch f {
	case FieldTitle:
		score, kind = 0.6, MatchPartialTitle
		if exact {
			return 1.0, MatchExactTitle
		}
	case FieldCategory:
		score, kind = 0.5, MatchCategory
	default:
		score, kind = 0.3, MatchNotes
	}
	if exact {
		score += 0.3
	}
	if first == 0 {
		score += 0.2
	}
	if float64(len(query))/float64(len(text)) > 0.5 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, kind
}

// findAll returns the byte offsets of non-overlapping matches
func findAll(text, query string, caseSensitive bool) []int {
	n := len(query)
	var positions []int
	for i := 0; i+n <= len(text); i++ {
		chunk := text[i : i+n]
		if chunk == query || (!caseSensitive && strings.EqualFold(chunk, query)) {
			positions = append(positions, i)
			i += n - 1
		}
	}
	return positions
}

func highlight(text string, n int, positions []int, start, end string) string {
	if start == "" {
		start = "**"
	}
	if end == "" {
		end = "**"
	}
	var b strings.Builder
	last := 0
	for _, p := range positions {
		b.WriteString(text[last:p])
		b.WriteString(start)
		b.WriteString(text[p : p+n])
		b.WriteString(end)
		last = p + n
	}
	b.WriteString(text[last:])
	return b.String()
}
