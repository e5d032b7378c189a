package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

// fakePages serves n results split into pages of size per page.
func fakePages(n, per int) (PageFetcher, *[]string) {
	var cursors []string
	return func(ctx context.Context, cursor string) (*QueryResult, error) {
		cursors = append(cursors, cursor)
		start := 0
		if cursor != "" {
			fmt.Sscanf(cursor, "c%d", &start)
		}
		res := &QueryResult{}
		for i := start; i < n && i < start+per; i++ {
			res.Results = append(res.Results, Page{ID: fmt.Sprintf("p%d", i)})
		}
		if start+per < n {
			res.HasMore = true
			res.NextCursor = fmt.Sprintf("c%d", start+per)
		}
		return res, nil
	}, &cursors
}

func TestPager_WalksAllPages(t *testing.T) {
	fetch, cursors := fakePages(250, 100)
	p := NewPager(fetch)

	var ids []string
	for page, err := range p.All(context.Background()) {
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		ids = append(ids, page.ID)
	}
	if len(ids) != 250 {
		t.Errorf("got %d results, want 250", len(ids))
	}
	if p.Fetched() != 3 || len(*cursors) != 3 {
		t.Errorf("fetched %d pages, want 3", p.Fetched())
	}
	if p.HasNext() {
		t.Error("HasNext() after exhaustion")
	}
	if res, err := p.Next(context.Background()); res != nil || err != nil {
		t.Errorf("Next after end = %v, %v", res, err)
	}
}

func TestPager_EarlyStopFetchesOnlyNeededPages(t *testing.T) {
	fetch, cursors := fakePages(1000, 100)
	p := NewPager(fetch)

	for page, err := range p.All(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		if page.ID == "p150" {
			break
		}
	}
	if len(*cursors) != 2 {
		t.Errorf("fetched %d pages, want 2", len(*cursors))
	}
}

func TestPager_ResetRestarts(t *testing.T) {
	fetch, cursors := fakePages(150, 100)
	p := NewPager(fetch)
	ctx := context.Background()

	if _, err := p.Next(ctx); err != nil {
		t.Fatal(err)
	}
	p.Reset()
	first, err := p.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first[0].ID != "p0" {
		t.Errorf("after Reset first result = %s, want p0", first[0].ID)
	}
	if (*cursors)[1] != "" {
		t.Errorf("Reset did not clear cursor: %v", *cursors)
	}
}

func TestPager_ErrorKeepsPosition(t *testing.T) {
	fail := true
	var seen []string
	p := NewPager(func(ctx context.Context, cursor string) (*QueryResult, error) {
		seen = append(seen, cursor)
		if cursor == "c1" && fail {
			fail = false
			return nil, ErrRateLimited
		}
		if cursor == "" {
			return &QueryResult{Results: []Page{{ID: "a"}}, HasMore: true, NextCursor: "c1"}, nil
		}
		return &QueryResult{Results: []Page{{ID: "b"}}}, nil
	})
	ctx := context.Background()

	if _, err := p.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Next(ctx); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second Next error = %v", err)
	}
	res, err := p.Next(ctx)
	if err != nil || len(res) != 1 || res[0].ID != "b" {
		t.Fatalf("retry Next = %v, %v", res, err)
	}
	if seen[1] != "c1" || seen[2] != "c1" {
		t.Errorf("cursors = %v, want c1 retried", seen)
	}
}

func TestQueryDatabase_SendsCursorAndFilter(t *testing.T) {
	var bodies []map[string]any
	c := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		if _, ok := body["start_cursor"]; !ok {
			_, _ = w.Write([]byte(`{"results":[{"id":"p1","properties":{"UID":{"type":"rich_text","rich_text":[{"plain_text":"t-1"}]}}}],"has_more":true,"next_cursor":"abc"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"id":"p2"}],"has_more":false,"next_cursor":null}`))
	})

	var got []string
	for page, err := range c.QueryDatabase("db-1", RichTextEquals(PropUID, "t-1")).All(context.Background()) {
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		got = append(got, page.ID)
		if page.ID == "p1" && page.PlainText(PropUID) != "t-1" {
			t.Errorf("PlainText(UID) = %q", page.PlainText(PropUID))
		}
	}
	if len(got) != 2 {
		t.Fatalf("results = %v", got)
	}
	if bodies[0]["page_size"] != float64(PageSize) {
		t.Errorf("page_size = %v", bodies[0]["page_size"])
	}
	if bodies[1]["start_cursor"] != "abc" {
		t.Errorf("start_cursor = %v", bodies[1]["start_cursor"])
	}
	if _, ok := bodies[0]["filter"]; !ok {
		t.Error("filter not sent")
	}
}

func TestLoadSchemas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `
tasks:
  version: 2
  properties:
    Title: title
    UID: rich_text
    Due: date
  required: [Title]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSchemas(path)
	if err != nil {
		t.Fatalf("LoadSchemas failed: %v", err)
	}
	if s.Tasks.Version != 2 || s.Tasks.Properties["Due"] != PropDate {
		t.Errorf("tasks schema = %+v", s.Tasks)
	}
	if s.Events.Name != "events" {
		t.Errorf("events schema should keep defaults, got %+v", s.Events)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("tasks:\n  version: 1\n  properties:\n    A: blob\n"), 0644)
	if _, err := LoadSchemas(bad); err == nil {
		t.Error("expected error for unsupported property type")
	}
}
