package types

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength bounds task and event titles.
const MaxTitleLength = 500

// Task is a unit of work with a due date.
type Task struct {
	ID             string    `json:"id" yaml:"id" toml:"id"`
	Title          string    `json:"title" yaml:"title" toml:"title"`
	Category       string    `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty"`
	Due            time.Time `json:"due,omitzero" yaml:"due,omitempty" toml:"due,omitempty"`
	Priority       Priority  `json:"priority" yaml:"priority" toml:"priority"`
	Status         Status    `json:"status" yaml:"status" toml:"status"`
	EstimatedHours float64   `json:"estimated_hours,omitempty" yaml:"estimated_hours,omitempty" toml:"estimated_hours,omitempty"`
	Notes          string    `json:"notes,omitempty" yaml:"notes,omitempty" toml:"notes,omitempty"`

	// PageID points at the remote page mirroring this task, if any.
	PageID string `json:"page_id,omitempty" yaml:"page_id,omitempty" toml:"page_id,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" toml:"updated_at"`
}

func (t *Task) ItemID() string    { return t.ID }
func (t *Task) ItemKind() Kind    { return KindTask }
func (t *Task) ItemTitle() string { return t.Title }

// ContentHash implements Item.
func (t *Task) ContentHash() string {
	return hashOf(struct {
		Title    string  `json:"title"`
		Category string  `json:"category"`
		Due      string  `json:"due"`
		Priority string  `json:"priority"`
		Status   string  `json:"status"`
		Hours    float64 `json:"hours"`
		Notes    string  `json:"notes"`
	}{
		Title:    t.Title,
		Category: t.Category,
		Due:      formatDate(t.Due),
		Priority: t.Priority.String(),
		Status:   t.Status.String(),
		Hours:    t.EstimatedHours,
		Notes:    t.Notes,
	})
}

// IsDone reports whether the task is completed.
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// HasDue reports whether a due date is set.
func (t *Task) HasDue() bool {
	return !t.Due.IsZero()
}

// Validate checks if the Task has valid field values.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if n := utf8.RuneCountInString(t.Title); n > MaxTitleLength {
		return fmt.Errorf("title must be %d characters or less (got %d)", MaxTitleLength, n)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %d", int(t.Priority))
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %d", int(t.Status))
	}
	if math.IsNaN(t.EstimatedHours) || math.IsInf(t.EstimatedHours, 0) {
		return fmt.Errorf("estimated hours must be a finite number (got %g)", t.EstimatedHours)
	}
	if t.EstimatedHours < 0 {
		return fmt.Errorf("estimated hours must not be negative (got %g)", t.EstimatedHours)
	}
	return nil
}

// SetDefaults fills bookkeeping timestamps that were left empty.
func (t *Task) SetDefaults(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
}

// Clone returns a copy of t.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// TruncateDay returns midnight of d's calendar day in d's location.
func TruncateDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
}
