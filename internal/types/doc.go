// Package types defines the domain model shared by every studysync package.
//
// # Items
//
// Two kinds of local items exist: Task (something to do by a due date) and
// Event (something that happens between a start and an end). Both are owned
// by the local store. The remote workspace is a mirror and never the source
// of truth, so the optional PageID on each item is only a back-reference.
//
// # Content Hash
//
// Every item exposes ContentHash, a hex SHA-256 over a canonical JSON
// encoding of its user-visible fields. Bookkeeping fields (PageID, CreatedAt,
// UpdatedAt) are excluded, so recording a push never changes the hash.
// The sync engine compares this value against the hash stored in the item's
// SyncRecord to decide between create, update and skip.
//
// # Repetition Schedules
//
// A RepetitionSchedule anchors a list of day offsets to a date. The cursor
// marks the next unreviewed offset; it only moves forward and equals
// len(Offsets) once every review is confirmed.
//
//	s := &types.RepetitionSchedule{
//	    SourceID: "task-123",
//	    Anchor:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
//	    Offsets:  types.DefaultOffsets(),
//	}
package types
