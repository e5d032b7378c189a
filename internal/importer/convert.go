package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/studysync/studysync/internal/calendar"
	"github.com/studysync/studysync/internal/types"
)

// timeLayouts are tried in order against upper-cased input.
var timeLayouts = []string{"15:04", "3:04 PM", "3:04PM", "15:04:05"}

// ParseClock parses a time of day. The returned duration is the offset from
// midnight.
func ParseClock(s string) (time.Duration, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", s)
}

// RecordError reports a record that could not be converted.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index+1, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Items holds converted records.
type Items struct {
	Tasks  []*types.Task
	Events []*types.Event
	Errors []*RecordError
}

// Convert turns records into tasks and events. Dates are interpreted in loc.
// Records that fail to convert are collected in Errors and skipped.
func Convert(recs []Record, loc *time.Location) *Items {
	if loc == nil {
		loc = time.Local
	}
	out := &Items{}
	for i, r := range recs {
		switch strings.ToLower(strings.TrimSpace(r.Type)) {
		case "task":
			t, err := r.toTask(loc)
			if err != nil {
				out.Errors = append(out.Errors, &RecordError{Index: i, Err: err})
				continue
			}
			out.Tasks = append(out.Tasks, t)
		case "event":
			e, err := r.toEvent(loc)
			if err != nil {
				out.Errors = append(out.Errors, &RecordError{Index: i, Err: err})
				continue
			}
			out.Events = append(out.Events, e)
		default:
			out.Errors = append(out.Errors, &RecordError{Index: i, Err: fmt.Errorf("unknown type %q", r.Type)})
		}
	}
	return out
}

func (r Record) toTask(loc *time.Location) (*types.Task, error) {
	due, err := time.ParseInLocation(types.DateLayout, strings.TrimSpace(r.DueDate), loc)
	if err != nil {
		return nil, fmt.Errorf("task %q: due_date: %w", r.Task, err)
	}
	priority := strings.ToLower(strings.TrimSpace(r.Priority))
	if priority == "" {
		priority = "medium"
	}
	p, err := types.ParsePriority(priority)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", r.Task, err)
	}
	status := types.StatusTodo
	if r.Status != "" {
		if status, err = types.ParseStatus(r.Status); err != nil {
			return nil, fmt.Errorf("task %q: %w", r.Task, err)
		}
	}
	title := r.Task
	if strings.TrimSpace(title) == "" {
		title = "Untitled Task"
	}

	return &types.Task{
		ID:             calendar.StableID("task", r.Task, r.DueDate, priority, r.Notes),
		Title:          title,
		Category:       r.Category,
		Due:            due,
		Priority:       p,
		Status:         status,
		EstimatedHours: r.Hours,
		Notes:          r.Notes,
	}, nil
}

func (r Record) toEvent(loc *time.Location) (*types.Event, error) {
	day, err := time.ParseInLocation(types.DateLayout, strings.TrimSpace(r.Date), loc)
	if err != nil {
		return nil, fmt.Errorf("event %q: date: %w", r.Event, err)
	}

	e := &types.Event{
		ID: calendar.StableID("event", r.Event, r.EventType, r.Location, r.Room,
			r.Date, r.Start, r.End),
		Title:     r.Event,
		EventType: r.EventType,
		Location:  joinLocation(r.Location, r.Room),
		Contact:   r.Contact,
	}
	if strings.TrimSpace(e.Title) == "" {
		e.Title = "Untitled Event"
	}
	if e.EventType == "" {
		e.EventType = "General"
	}

	if strings.TrimSpace(r.Start) == "" {
		e.AllDay = true
		e.Start = day
		e.End = day.AddDate(0, 0, 1)
		return e, nil
	}
	start, err := ParseClock(r.Start)
	if err != nil {
		return nil, fmt.Errorf("event %q: start: %w", r.Event, err)
	}
	e.Start = day.Add(start)
	e.End = e.Start.Add(time.Hour)
	if strings.TrimSpace(r.End) != "" {
		end, err := ParseClock(r.End)
		if err != nil {
			return nil, fmt.Errorf("event %q: end: %w", r.Event, err)
		}
		if end > start {
			e.End = day.Add(end)
		}
	}
	return e, nil
}

func joinLocation(location, room string) string {
	location, room = strings.TrimSpace(location), strings.TrimSpace(room)
	switch {
	case room == "":
		return location
	case location == "":
		return "Room " + room
	default:
		return location + ", Room " + room
	}
}
