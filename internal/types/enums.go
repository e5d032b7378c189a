package types

import (
	"fmt"
	"strings"
)

// Priority is an ordered task priority: PriorityLow < ... < PriorityUrgent.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = [...]string{"low", "medium", "high", "urgent"}

func (p Priority) String() string {
	if p < PriorityLow || p > PriorityUrgent {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// ParsePriority parses a priority name case-insensitively.
// "normal" is accepted as an alias for medium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium", "normal", "":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return PriorityMedium, fmt.Errorf("unknown priority %q (want low, medium, high or urgent)", s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Status is an ordered task status: StatusTodo < ... < StatusDone.
type Status int

const (
	StatusTodo Status = iota
	StatusInProgress
	StatusReview
	StatusDone
)

var (
	statusNames   = [...]string{"todo", "in-progress", "review", "done"}
	statusDisplay = [...]string{"To Do", "In Progress", "Review", "Done"}
)

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Display returns the human label used for the remote status property.
func (s Status) Display() string {
	if !s.Valid() {
		return s.String()
	}
	return statusDisplay[s]
}

func (s Status) Valid() bool {
	return s >= StatusTodo && s <= StatusDone
}

// ParseStatus accepts both the short names and the display labels,
// ignoring case, spaces, dashes and underscores.
func ParseStatus(s string) (Status, error) {
	norm := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(s))
	switch norm {
	case "todo", "":
		return StatusTodo, nil
	case "inprogress", "doing":
		return StatusInProgress, nil
	case "review":
		return StatusReview, nil
	case "done", "completed", "complete":
		return StatusDone, nil
	}
	return StatusTodo, fmt.Errorf("unknown status %q (want todo, in-progress, review or done)", s)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Kind distinguishes the two item kinds.
type Kind string

const (
	KindTask  Kind = "task"
	KindEvent Kind = "event"
)

func (k Kind) Valid() bool {
	return k == KindTask || k == KindEvent
}
