package types

import (
	"fmt"
	"sort"
	"strings"
)

// PartitionKey identifies the subset of a day's tasks within which manual
// order is meaningful. Reorder eligibility and renormalization both use it.
type PartitionKey struct {
	Date     Date
	Done     bool
	Priority Priority
}

// String returns the partition in "date|done:false,priority:1" form
func (k PartitionKey) String() string {
	return fmt.Sprintf("%s|done:%t,priority:%d", k.Date, k.Done, int(k.Priority))
}

// ParsePartitionKey parses the output of PartitionKey.String
func ParsePartitionKey(s string) (PartitionKey, error) {
	mainParts := strings.SplitN(s, "|", 2)
	if len(mainParts) != 2 {
		return PartitionKey{}, fmt.Errorf("invalid partition format: missing separator")
	}

	date, err := ParseDate(mainParts[0])
	if err != nil {
		return PartitionKey{}, err
	}

	var done bool
	var priority int
	if _, err := fmt.Sscanf(mainParts[1], "done:%t,priority:%d", &done, &priority); err != nil {
		return PartitionKey{}, fmt.Errorf("invalid partition values: %s", mainParts[1])
	}

	return PartitionKey{Date: date, Done: done, Priority: Priority(priority)}, nil
}

// DisplayLess orders tasks the way a day is shown: open before done, high
// priority before normal, then by sort key, then by category name. The ID
// breaks any remaining tie so the order depends on persisted fields only.
func DisplayLess(a, b Task) bool {
	if a.Done != b.Done {
		return !a.Done
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	if ca, cb := a.CategoryName(), b.CategoryName(); ca != cb {
		return ca < cb
	}
	return a.ID < b.ID
}

// SortForDisplay sorts tasks in place by DisplayLess
func SortForDisplay(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return DisplayLess(tasks[i], tasks[j])
	})
}

// PartitionOf returns the display-ordered members of key within tasks
func PartitionOf(tasks []Task, key PartitionKey) []Task {
	var members []Task
	for _, t := range tasks {
		if t.Partition() == key {
			members = append(members, t)
		}
	}
	SortForDisplay(members)
	return members
}

// PartitionMap groups tasks by partition key
type PartitionMap map[PartitionKey][]Task

// GroupByPartition builds a PartitionMap with display-ordered members
func GroupByPartition(tasks []Task) PartitionMap {
	pm := make(PartitionMap)
	for _, t := range tasks {
		pm.Add(t)
	}
	for k := range pm {
		SortForDisplay(pm[k])
	}
	return pm
}

// Add adds a task to its partition
func (pm PartitionMap) Add(t Task) {
	key := t.Partition()
	pm[key] = append(pm[key], t)
}

// Count returns the number of tasks in a specific partition
func (pm PartitionMap) Count(key PartitionKey) int {
	return len(pm[key])
}
