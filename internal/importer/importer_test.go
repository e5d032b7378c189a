package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/types"
)

const legacyJSON = `[
  {"type": "task", "task": "Pharmacology quiz", "due_date": "2026-03-05", "priority": "High", "notes": "ch. 4-6"},
  {"type": "event", "event": "Clinical rotation", "eventtype": "Clinical", "location": "St. Mary", "room": "3B",
   "date": "2026-03-04", "start": "7:00 AM", "end": "3:30 PM"},
  {"type": "event", "event": "Study group", "date": "2026-03-06", "start": "18:00"},
  {"type": "event", "event": "Holiday", "date": "2026-03-09"},
  {"type": "task", "task": "Broken", "due_date": "someday"},
  {"type": "note", "task": "Ignored"}
]`

const tableTOML = `
[[task]]
task = "Pharmacology quiz"
due_date = "2026-03-05"
priority = "high"
notes = "ch. 4-6"

[[event]]
event = "Clinical rotation"
eventtype = "Clinical"
location = "St. Mary"
room = "3B"
date = "2026-03-04"
start = "7:00 AM"
end = "3:30 PM"
`

const tableYAML = `
task:
  - task: Pharmacology quiz
    due_date: "2026-03-05"
    priority: high
    notes: ch. 4-6
event:
  - event: Clinical rotation
    eventtype: Clinical
    location: St. Mary
    room: 3B
    date: "2026-03-04"
    start: 7:00 AM
    end: 3:30 PM
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"13:30", 13*time.Hour + 30*time.Minute, true},
		{"1:30 PM", 13*time.Hour + 30*time.Minute, true},
		{"1:30pm", 13*time.Hour + 30*time.Minute, true},
		{"07:05:09", 7*time.Hour + 5*time.Minute + 9*time.Second, true},
		{"12:00 am", 0, true},
		{"noon", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParseClock(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	for path, want := range map[string]Format{
		"calendar.json": FormatJSON,
		"items.TOML":    FormatTOML,
		"a.yml":         FormatYAML,
		"b.yaml":        FormatYAML,
	} {
		if got, err := DetectFormat(path); err != nil || got != want {
			t.Errorf("DetectFormat(%s) = %s, %v", path, got, err)
		}
	}
	if _, err := DetectFormat("notes.txt"); err == nil {
		t.Error("expected error for .txt")
	}
}

func TestConvert_Legacy(t *testing.T) {
	recs, err := ReadFile(writeFile(t, "calendar.json", legacyJSON))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	items := Convert(recs, time.UTC)

	if len(items.Tasks) != 1 || len(items.Events) != 3 || len(items.Errors) != 2 {
		t.Fatalf("tasks=%d events=%d errors=%d", len(items.Tasks), len(items.Events), len(items.Errors))
	}
	if items.Errors[0].Index != 4 || !strings.Contains(items.Errors[1].Error(), "unknown type") {
		t.Errorf("errors = %v, %v", items.Errors[0], items.Errors[1])
	}

	task := items.Tasks[0]
	if task.Priority != types.PriorityHigh || task.Status != types.StatusTodo || len(task.ID) != 40 {
		t.Errorf("task = %+v", task)
	}

	rotation := items.Events[0]
	if rotation.Location != "St. Mary, Room 3B" || rotation.EventType != "Clinical" {
		t.Errorf("rotation = %+v", rotation)
	}
	if rotation.Start.Hour() != 7 || rotation.End.Hour() != 15 || rotation.End.Minute() != 30 {
		t.Errorf("rotation times = %v - %v", rotation.Start, rotation.End)
	}

	group := items.Events[1]
	if group.Duration() != time.Hour || group.EventType != "General" {
		t.Errorf("open-ended event = %+v", group)
	}
	if holiday := items.Events[2]; !holiday.AllDay || holiday.Duration() != 24*time.Hour {
		t.Errorf("all-day event = %+v", holiday)
	}
}

func TestFormats_AgreeOnIDs(t *testing.T) {
	var ids [][]string
	for name, content := range map[string]string{
		"a.json": legacyJSON,
		"b.toml": tableTOML,
		"c.yaml": tableYAML,
	} {
		recs, err := ReadFile(writeFile(t, name, content))
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", name, err)
		}
		items := Convert(recs, time.UTC)
		ids = append(ids, []string{items.Tasks[0].ID, items.Events[0].ID})
	}
	for _, got := range ids[1:] {
		if got[0] != ids[0][0] || got[1] != ids[0][1] {
			t.Errorf("ids differ across formats: %v vs %v", got, ids[0])
		}
	}
}

func TestDecode_YAMLList(t *testing.T) {
	recs, err := Decode(FormatYAML, strings.NewReader("- type: task\n  task: One\n  due_date: \"2026-03-05\"\n"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(recs) != 1 || recs[0].Task != "One" {
		t.Errorf("records = %+v", recs)
	}
}

func TestApply_Idempotent(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	recs, _ := Decode(FormatJSON, strings.NewReader(legacyJSON))
	items := Convert(recs, time.UTC)

	res, err := Apply(st, items)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.Created != 4 || res.Invalid != 2 {
		t.Errorf("first apply = %+v", res)
	}

	res, err = Apply(st, Convert(recs, time.UTC))
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if res.Created != 0 || res.Updated != 0 || res.Unchanged != 4 {
		t.Errorf("second apply = %+v", res)
	}

	if _, err := st.GetTask(items.Tasks[0].ID); err != nil {
		t.Errorf("task not stored: %v", err)
	}
}

func TestReadFile_Errors(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	var recErr *RecordError
	items := Convert([]Record{{Type: "event", Event: "x", Date: "2026-03-01", Start: "25:99"}}, time.UTC)
	if len(items.Errors) != 1 || !errors.As(items.Errors[0], &recErr) {
		t.Errorf("errors = %v", items.Errors)
	}
}
