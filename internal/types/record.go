package types

import (
	"fmt"
	"time"
)

// SyncRecord remembers the last successful push of one local item.
// A record exists iff the item was pushed at least once.
type SyncRecord struct {
	ItemID      string    `json:"item_id"`
	Kind        Kind      `json:"kind"`
	RemoteID    string    `json:"remote_id"`
	ContentHash string    `json:"content_hash"`
	LastSynced  time.Time `json:"last_synced"`
}

// Validate checks if the SyncRecord has valid field values.
func (r *SyncRecord) Validate() error {
	if r.ItemID == "" {
		return fmt.Errorf("item_id is required")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("invalid kind %q", r.Kind)
	}
	if r.RemoteID == "" {
		return fmt.Errorf("remote_id is required")
	}
	return nil
}

// DefaultOffsets returns the standard spaced repetition offsets in days.
func DefaultOffsets() []int {
	return []int{1, 3, 7, 14, 30}
}

// RepetitionSchedule tracks spaced reviews of a source task.
type RepetitionSchedule struct {
	ID       string    `json:"id"`
	SourceID string    `json:"source_id"`
	Anchor   time.Time `json:"anchor"`
	Offsets  []int     `json:"offsets"`
	// Cursor indexes the next unreviewed offset.
	Cursor    int       `json:"cursor"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the offset and cursor invariants.
func (s *RepetitionSchedule) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if s.Anchor.IsZero() {
		return fmt.Errorf("anchor is required")
	}
	if len(s.Offsets) == 0 {
		return fmt.Errorf("at least one offset is required")
	}
	prev := 0
	for i, off := range s.Offsets {
		if off < 1 {
			return fmt.Errorf("offset %d must be at least 1 (got %d)", i, off)
		}
		if off <= prev {
			return fmt.Errorf("offsets must be strictly increasing (%d after %d)", off, prev)
		}
		prev = off
	}
	if s.Cursor < 0 || s.Cursor > len(s.Offsets) {
		return fmt.Errorf("cursor must be between 0 and %d (got %d)", len(s.Offsets), s.Cursor)
	}
	return nil
}

// Exhausted reports whether every review has been confirmed.
func (s *RepetitionSchedule) Exhausted() bool {
	return s.Cursor >= len(s.Offsets)
}

func (s *RepetitionSchedule) Clone() *RepetitionSchedule {
	c := *s
	c.Offsets = append([]int(nil), s.Offsets...)
	return &c
}
