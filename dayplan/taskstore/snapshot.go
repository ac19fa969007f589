package taskstore

import (
	"reflect"

	"github.com/arthur-debert/dayplan/types"
)

// Snapshot is a deep copy of some days of the store.
// A day that had no tasks is recorded as absent so Restore removes it again.
type Snapshot struct {
	days map[types.Date][]types.Task
	rows map[string]types.Task
}

// Dates returns the dates covered by the snapshot
func (sn Snapshot) Dates() []types.Date {
	out := make([]types.Date, 0, len(sn.days))
	for d := range sn.days {
		out = append(out, d)
	}
	return out
}

// Tasks returns the captured tasks of a date
func (sn Snapshot) Tasks(date types.Date) []types.Task {
	return cloneTasks(sn.days[date])
}

// Snapshot captures the given dates. Duplicate dates are harmless.
func (s *Store) Snapshot(dates ...types.Date) Snapshot {
	return read(s.lockManager, func() Snapshot {
		sn := Snapshot{
			days: make(map[types.Date][]types.Task, len(dates)),
			rows: make(map[string]types.Task),
		}
		for _, d := range dates {
			if _, done := sn.days[d]; done {
				continue
			}
			sn.days[d] = s.day(d)
			for _, t := range sn.days[d] {
				sn.rows[t.ID] = t
			}
		}
		return sn
	})
}

// SnapshotAll captures every date currently in the store
func (s *Store) SnapshotAll() Snapshot {
	return s.Snapshot(s.Dates()...)
}

// Changes returns the ids whose rows differ from the snapshot: captured
// rows that were edited, moved or removed, and rows that appeared on a
// captured date. Taken right after a write it names exactly what that
// write touched.
func (s *Store) Changes(sn Snapshot) []string {
	return read(s.lockManager, func() []string {
		var ids []string
		for id, before := range sn.rows {
			date, ok := s.index[id]
			if !ok || !reflect.DeepEqual(before, s.days[date][id]) {
				ids = append(ids, id)
			}
		}
		for d := range sn.days {
			for id := range s.days[d] {
				if _, captured := sn.rows[id]; !captured {
					ids = append(ids, id)
				}
			}
		}
		return ids
	})
}

// RestoreRows puts back the captured rows of ids and removes the ids the
// snapshot did not hold. Every other row is left alone.
func (s *Store) RestoreRows(sn Snapshot, ids []string) {
	_ = s.lockManager.Execute(WriteOperation, func() error {
		for _, id := range ids {
			if before, ok := sn.rows[id]; ok {
				s.put(before)
			} else {
				s.remove(id)
			}
		}
		return nil
	})
}

func cloneTasks(tasks []types.Task) []types.Task {
	if tasks == nil {
		return nil
	}
	out := make([]types.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
