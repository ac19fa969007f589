package types

// CategorySet is a deduplicated, insertion-ordered set of category names
type CategorySet struct {
	names []string
}

// NewCategorySet builds a set from names, dropping blanks and duplicates
func NewCategorySet(names ...string) *CategorySet {
	cs := &CategorySet{}
	for _, n := range names {
		cs.Add(n)
	}
	return cs
}

// CategoriesOf collects the categories referenced by tasks
func CategoriesOf(tasks []Task) []string {
	cs := &CategorySet{}
	for _, t := range tasks {
		if t.Category != nil {
			cs.Add(*t.Category)
		}
	}
	return cs.Names()
}

// Add inserts name if it is non-empty and not already present.
// Returns true when the set changed.
func (cs *CategorySet) Add(name string) bool {
	if name == "" || cs.Contains(name) {
		return false
	}
	cs.names = append(cs.names, name)
	return true
}

// Contains reports membership
func (cs *CategorySet) Contains(name string) bool {
	for _, n := range cs.names {
		if n == name {
			return true
		}
	}
	return false
}

// Remove deletes name; returns true when it was present
func (cs *CategorySet) Remove(name string) bool {
	for i, n := range cs.names {
		if n == name {
			cs.names = append(cs.names[:i:i], cs.names[i+1:]...)
			return true
		}
	}
	return false
}

// Rename replaces from with to in place, then dedupes so renaming onto an
// existing name merges the two entries.
func (cs *CategorySet) Rename(from, to string) {
	out := make([]string, 0, len(cs.names)+1)
	seen := make(map[string]bool, len(cs.names)+1)
	replaced := false
	for _, n := range cs.names {
		if n == from {
			n = to
			replaced = true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if !replaced && !seen[to] {
		out = append(out, to)
	}
	cs.names = out
}

// Names returns a copy of the names in insertion order
func (cs *CategorySet) Names() []string {
	out := make([]string, len(cs.names))
	copy(out, cs.names)
	return out
}

// Len returns the number of names
func (cs *CategorySet) Len() int {
	return len(cs.names)
}

// Clone returns an independent copy
func (cs *CategorySet) Clone() *CategorySet {
	return &CategorySet{names: cs.Names()}
}
