package types

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Event is a calendar entry with a start and an end.
type Event struct {
	ID        string    `json:"id" yaml:"id" toml:"id"`
	Title     string    `json:"title" yaml:"title" toml:"title"`
	Start     time.Time `json:"start" yaml:"start" toml:"start"`
	End       time.Time `json:"end" yaml:"end" toml:"end"`
	Location  string    `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty"`
	EventType string    `json:"event_type,omitempty" yaml:"event_type,omitempty" toml:"event_type,omitempty"`
	Contact   string    `json:"contact,omitempty" yaml:"contact,omitempty" toml:"contact,omitempty"`
	AllDay    bool      `json:"all_day,omitempty" yaml:"all_day,omitempty" toml:"all_day,omitempty"`

	PageID string `json:"page_id,omitempty" yaml:"page_id,omitempty" toml:"page_id,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" toml:"updated_at"`
}

func (e *Event) ItemID() string    { return e.ID }
func (e *Event) ItemKind() Kind    { return KindEvent }
func (e *Event) ItemTitle() string { return e.Title }

// ContentHash implements Item.
func (e *Event) ContentHash() string {
	return hashOf(struct {
		Title     string `json:"title"`
		Start     string `json:"start"`
		End       string `json:"end"`
		Location  string `json:"location"`
		EventType string `json:"event_type"`
		Contact   string `json:"contact"`
		AllDay    bool   `json:"all_day"`
	}{
		Title:     e.Title,
		Start:     e.Start.UTC().Format(time.RFC3339),
		End:       e.End.UTC().Format(time.RFC3339),
		Location:  e.Location,
		EventType: e.EventType,
		Contact:   e.Contact,
		AllDay:    e.AllDay,
	})
}

// Duration returns End - Start.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Overlaps reports whether the event intersects [start, end).
func (e *Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// Validate checks if the Event has valid field values.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if n := utf8.RuneCountInString(e.Title); n > MaxTitleLength {
		return fmt.Errorf("title must be %d characters or less (got %d)", MaxTitleLength, n)
	}
	if e.Start.IsZero() {
		return fmt.Errorf("start is required")
	}
	if e.End.IsZero() {
		return fmt.Errorf("end is required")
	}
	if e.End.Before(e.Start) {
		return fmt.Errorf("end %s is before start %s", e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
	}
	return nil
}

// SetDefaults fills bookkeeping timestamps and a missing end.
// An event without an end lasts one hour.
func (e *Event) SetDefaults(now time.Time) {
	if e.End.IsZero() && !e.Start.IsZero() {
		e.End = e.Start.Add(time.Hour)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
}

func (e *Event) Clone() *Event {
	c := *e
	return &c
}
