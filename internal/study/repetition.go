package study

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studysync/studysync/internal/types"
)

// ErrScheduleExhausted is returned by Advance when every review is done.
var ErrScheduleExhausted = errors.New("repetition schedule exhausted")

// NewSchedule creates a schedule for sourceID anchored at the calendar day
// of anchor. Nil offsets select types.DefaultOffsets.
func NewSchedule(sourceID string, anchor time.Time, offsets []int) (*types.RepetitionSchedule, error) {
	if offsets == nil {
		offsets = types.DefaultOffsets()
	}
	s := &types.RepetitionSchedule{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		Anchor:    types.TruncateDay(anchor),
		Offsets:   append([]int(nil), offsets...),
		CreatedAt: anchor,
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}
	return s, nil
}

// ParseOffsets parses a comma separated list such as "1,3,7,14".
func ParseOffsets(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(part, "%d", &n); err != nil {
			return nil, fmt.Errorf("invalid offset %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no offsets given")
	}
	return out, nil
}

// NextReview returns the date of the next unconfirmed review, or false when
// the schedule is exhausted. It never modifies s.
func NextReview(s *types.RepetitionSchedule) (time.Time, bool) {
	if s.Exhausted() {
		return time.Time{}, false
	}
	return reviewDate(s, s.Offsets[s.Cursor]), true
}

// IsDue reports whether the next review falls on or before today.
func IsDue(s *types.RepetitionSchedule, today time.Time) bool {
	next, ok := NextReview(s)
	if !ok {
		return false
	}
	return !next.After(types.TruncateDay(today))
}

// Advance confirms the current review and moves to the next offset.
func Advance(s *types.RepetitionSchedule) error {
	if s.Exhausted() {
		return ErrScheduleExhausted
	}
	s.Cursor++
	return nil
}

// Remaining returns the dates of every unconfirmed review.
func Remaining(s *types.RepetitionSchedule) []time.Time {
	var out []time.Time
	for _, off := range s.Offsets[min(s.Cursor, len(s.Offsets)):] {
		out = append(out, reviewDate(s, off))
	}
	return out
}

func reviewDate(s *types.RepetitionSchedule, offset int) time.Time {
	return types.TruncateDay(s.Anchor).AddDate(0, 0, offset)
}

// ReviewTaskID is the deterministic id of the review task for one offset.
func ReviewTaskID(sourceID string, offset int) string {
	return fmt.Sprintf("review-%s-%d", sourceID, offset)
}

// ReviewTasks returns one task per unconfirmed review of s. Ids are
// deterministic, so storing them again updates instead of duplicating.
func ReviewTasks(source *types.Task, s *types.RepetitionSchedule) []*types.Task {
	var out []*types.Task
	for i := s.Cursor; i < len(s.Offsets); i++ {
		off := s.Offsets[i]
		out = append(out, &types.Task{
			ID:             ReviewTaskID(source.ID, off),
			Title:          "Review: " + source.Title,
			Category:       source.Category,
			Due:            reviewDate(s, off),
			Priority:       source.Priority,
			Status:         types.StatusTodo,
			EstimatedHours: 0.5,
			Notes:          reviewNotes(source, off),
		})
	}
	return out
}

func reviewNotes(source *types.Task, offset int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Spaced repetition review for: %s\n\n", source.Title)
	if source.HasDue() {
		fmt.Fprintf(&sb, "Original due date: %s\n", source.Due.Format(types.DateLayout))
	}
	fmt.Fprintf(&sb, "Review interval: %d days\n", offset)
	sb.WriteString("Focus: active recall and concept reinforcement\n\n")
	sb.WriteString("Study tips:\n")
	sb.WriteString("- Test yourself without looking at your notes first\n")
	sb.WriteString("- Identify gaps in understanding\n")
	sb.WriteString("- Connect concepts to practice\n")
	sb.WriteString("- Update your notes with new insights\n\n")
	sb.WriteString("Original notes:\n")
	if source.Notes != "" {
		sb.WriteString(source.Notes)
	} else {
		sb.WriteString("No additional notes from the original task.")
	}
	return sb.String()
}
