package notion

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/studysync/studysync/internal/types"
)

// titleCase capitalizes select option names ("high" -> "High").
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// TaskPayload maps a task onto the tasks schema. Optional properties the
// schema does not declare are left out.
func TaskPayload(s *Schema, t *types.Task) (*Payload, error) {
	b := NewBuilder(s).Title(PropName, t.Title)
	if s.Has(PropDue) {
		b.Date(PropDue, t.Due, t.Due, true)
	}
	if s.Has(PropPriority) {
		b.Select(PropPriority, titleCase(t.Priority.String()))
	}
	if s.Has(PropStatusCol) {
		switch s.Properties[PropStatusCol] {
		case PropSelect:
			b.Select(PropStatusCol, t.Status.Display())
		default:
			b.Status(PropStatusCol, t.Status.Display())
		}
	}
	if s.Has(PropCategory) {
		b.Select(PropCategory, t.Category)
	}
	if s.Has(PropEstimate) {
		b.Number(PropEstimate, t.EstimatedHours)
	}
	if s.Has(PropNotes) {
		b.RichText(PropNotes, t.Notes)
	}
	if s.Has(PropUID) {
		b.RichText(PropUID, t.ID)
	}
	return b.Build()
}

// EventPayload maps an event onto the events schema.
func EventPayload(s *Schema, e *types.Event) (*Payload, error) {
	b := NewBuilder(s).Title(PropName, e.Title)
	if s.Has(PropWhen) {
		b.Date(PropWhen, e.Start, e.End, e.AllDay)
	}
	if s.Has(PropEventType) {
		b.Select(PropEventType, titleCase(e.EventType))
	}
	if s.Has(PropLocation) {
		b.RichText(PropLocation, e.Location)
	}
	if s.Has(PropContact) {
		b.RichText(PropContact, e.Contact)
	}
	if s.Has(PropUID) {
		b.RichText(PropUID, e.ID)
	}
	return b.Build()
}

// ItemPayload dispatches on the item kind.
func ItemPayload(schemas *Schemas, it types.Item) (*Payload, error) {
	switch v := it.(type) {
	case *types.Task:
		return TaskPayload(schemas.Tasks, v)
	case *types.Event:
		return EventPayload(schemas.Events, v)
	}
	return nil, ErrSchema
}
