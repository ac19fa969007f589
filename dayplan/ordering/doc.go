// Package ordering allocates sort keys for manual task order.
//
//	Overview
//
// Every task carries a numeric sort key. Keys only mean something inside a
// partition (date, done, priority); the display comparator orders a
// partition by key, so placing a task means choosing a key between its
// future neighbours without touching anyone else.
//
//	Append
//
// New tasks and tasks joining a partition from elsewhere get a key derived
// from the clock (Unix milliseconds). If the clock has not moved past the
// partition's largest key the allocator uses max+1 instead, so appended keys
// are always strictly increasing within a partition.
//
//	Place
//
// Reordering takes the display-ordered partition, removes the moved task,
// locates the reference task and picks the insertion index (reference index
// for Above, reference index + 1 for Below). With the predecessor key p and
// successor key n at that index:
//
//   - neither present: DefaultBase
//   - only p: p + Increment
//   - only n: n - Increment
//   - n - p > 1: floor((p + n) / 2)
//   - otherwise: renormalize, then apply the same rule again
//
//	Renormalization
//
// Renormalizing assigns (i+1) * Spacing to the i-th task of the
// display-ordered partition. Relative order never changes, only the
// absolute key values, so renormalizing twice is the same as once.
//
// Example with keys [1000, 2000], inserting below the first task:
//
//   - p=1000, n=2000 → 1500
//
// Inserting between 1000 and 1001 instead:
//
//   - no integer midpoint → partition renormalized to [1000, 2000, 3000]
//   - moved task placed at the midpoint of its new neighbours
//
// The allocator is pure: it reads task slices and returns keys. Callers
// apply the resulting Placement to their store and persist it.
package ordering
