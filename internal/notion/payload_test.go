package notion

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/studysync/studysync/internal/types"
)

func TestBuilder_RejectsUnknownAndMistypedProperties(t *testing.T) {
	tests := []struct {
		name   string
		build  func(*Builder) *Builder
		errMsg string
	}{
		{
			name:   "unknown property",
			build:  func(b *Builder) *Builder { return b.RichText("Colour", "red") },
			errMsg: `unknown property "Colour"`,
		},
		{
			name:   "wrong type",
			build:  func(b *Builder) *Builder { return b.RichText(PropDue, "tomorrow") },
			errMsg: `property "Due" is date, not rich_text`,
		},
		{
			name: "missing required",
			build: func(b *Builder) *Builder {
				return b.Select(PropPriority, "High")
			},
			errMsg: `required property "Name" not set`,
		},
		{
			name:   "empty title",
			build:  func(b *Builder) *Builder { return b.Title(PropName, " ") },
			errMsg: "is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(TaskSchema()).Title(PropName, "x").RichText(PropUID, "id")
			if tt.name == "missing required" || tt.name == "empty title" {
				b = NewBuilder(TaskSchema()).RichText(PropUID, "id")
			}
			_, err := tt.build(b).Build()
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("Build() error = %v, want ErrSchema", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Build() error = %q, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestBuilder_Truncates(t *testing.T) {
	long := strings.Repeat("é", MaxTextLength+50)
	p, err := NewBuilder(TaskSchema()).
		Title(PropName, "x").
		RichText(PropUID, "id").
		RichText(PropNotes, long).
		Select(PropCategory, strings.Repeat("c", 150)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	notes := p.Properties[PropNotes].(richTextValue)
	if n := utf8.RuneCountInString(notes.RichText[0].Text.Content); n != MaxTextLength {
		t.Errorf("notes length = %d, want %d", n, MaxTextLength)
	}
	cat := p.Properties[PropCategory].(selectValue)
	if n := len(cat.Select.Name); n != MaxSelectLength {
		t.Errorf("select length = %d, want %d", n, MaxSelectLength)
	}
}

func TestTaskPayload_Shapes(t *testing.T) {
	task := &types.Task{
		ID:             "t-1",
		Title:          "Lab report",
		Due:            time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Priority:       types.PriorityHigh,
		Status:         types.StatusInProgress,
		EstimatedHours: 1.5,
	}
	p, err := TaskPayload(TaskSchema(), task)
	if err != nil {
		t.Fatalf("TaskPayload failed: %v", err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var props map[string]json.RawMessage
	if err := json.Unmarshal(data, &props); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		PropName:      `{"title":[{"type":"text","text":{"content":"Lab report"}}]}`,
		PropDue:       `{"date":{"start":"2026-03-09"}}`,
		PropPriority:  `{"select":{"name":"High"}}`,
		PropStatusCol: `{"status":{"name":"In Progress"}}`,
		PropCategory:  `{"select":null}`,
		PropEstimate:  `{"number":1.5}`,
		PropNotes:     `{"rich_text":[]}`,
		PropUID:       `{"rich_text":[{"type":"text","text":{"content":"t-1"}}]}`,
	}
	for k, v := range want {
		if got := string(props[k]); got != v {
			t.Errorf("%s = %s, want %s", k, got, v)
		}
	}
}

func TestEventPayload_DateRange(t *testing.T) {
	start := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	e := &types.Event{ID: "e-1", Title: "Lecture", Start: start, End: start.Add(time.Hour), EventType: "lecture"}
	p, err := EventPayload(EventSchema(), e)
	if err != nil {
		t.Fatalf("EventPayload failed: %v", err)
	}
	data, _ := json.Marshal(p.Properties[PropWhen])
	if want := `{"date":{"start":"2026-03-03T10:00:00Z","end":"2026-03-03T11:00:00Z"}}`; string(data) != want {
		t.Errorf("When = %s, want %s", data, want)
	}
	typ, _ := json.Marshal(p.Properties[PropEventType])
	if string(typ) != `{"select":{"name":"Lecture"}}` {
		t.Errorf("Event Type = %s", typ)
	}
}

func TestTaskPayload_SkipsUndeclaredOptionalProperties(t *testing.T) {
	s := &Schema{
		Name:       "minimal",
		Version:    2,
		Properties: map[string]PropertyType{PropName: PropTitle, PropUID: PropRichText},
		Required:   []string{PropName},
	}
	p, err := TaskPayload(s, &types.Task{ID: "t", Title: "x", Notes: "n"})
	if err != nil {
		t.Fatalf("TaskPayload failed: %v", err)
	}
	if len(p.Properties) != 2 || p.SchemaVersion != 2 {
		t.Errorf("properties = %v (v%d), want Name and UID only", p.Properties, p.SchemaVersion)
	}
}

func TestSchema_Validate(t *testing.T) {
	if err := TaskSchema().Validate(); err != nil {
		t.Errorf("TaskSchema invalid: %v", err)
	}
	if err := EventSchema().Validate(); err != nil {
		t.Errorf("EventSchema invalid: %v", err)
	}
	bad := &Schema{Name: "x", Version: 1, Properties: map[string]PropertyType{"A": PropRichText}}
	if err := bad.Validate(); err == nil {
		t.Error("schema without title should be invalid")
	}
}
