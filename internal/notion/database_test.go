package notion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"testing"
)

func TestCreateDatabase_CreatesThenAddsStatus(t *testing.T) {
	var created struct {
		Parent     map[string]string          `json:"parent"`
		Title      []richTextSpan             `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	var patched struct {
		Properties map[string]struct {
			Status optionList `json:"status"`
		} `json:"properties"`
	}
	var calls []string

	c := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == "POST" && r.URL.Path == "/databases":
			if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
				t.Errorf("decode create body: %v", err)
			}
			_, _ = io.WriteString(w, `{"id":"db-new","title":[{"plain_text":"Sync - Tasks"}],
				"properties":{"Name":{"name":"Name","type":"title"}}}`)
		case r.Method == "PATCH" && r.URL.Path == "/databases/db-new":
			if err := json.NewDecoder(r.Body).Decode(&patched); err != nil {
				t.Errorf("decode update body: %v", err)
			}
			_, _ = io.WriteString(w, `{"id":"db-new","title":[{"plain_text":"Sync - Tasks"}],
				"properties":{"Name":{"name":"Name","type":"title"},"Status":{"name":"Status","type":"status"}}}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	db, err := c.CreateDatabase(context.Background(), "page-1", "Sync - Tasks", TaskSchema())
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}

	if want := []string{"POST /databases", "PATCH /databases/db-new"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if created.Parent["type"] != "page_id" || created.Parent["page_id"] != "page-1" {
		t.Errorf("parent = %v", created.Parent)
	}
	if len(created.Title) != 1 || created.Title[0].Text.Content != "Sync - Tasks" {
		t.Errorf("title = %+v", created.Title)
	}
	if _, ok := created.Properties[PropStatusCol]; ok {
		t.Error("status property sent at creation")
	}
	for name := range TaskSchema().Properties {
		if name != PropStatusCol && created.Properties[name] == nil {
			t.Errorf("property %q missing from create body", name)
		}
	}
	if got := string(created.Properties[PropUID]); got != `{"rich_text":{}}` {
		t.Errorf("UID config = %s", got)
	}
	if got := string(created.Properties[PropPriority]); got != `{"select":{"options":[]}}` {
		t.Errorf("Priority config = %s", got)
	}

	var names []string
	for _, o := range patched.Properties[PropStatusCol].Status.Options {
		names = append(names, o.Name)
	}
	if !reflect.DeepEqual(names, StatusOptions()) {
		t.Errorf("status options = %v, want %v", names, StatusOptions())
	}

	if db.ID != "db-new" {
		t.Errorf("ID = %q, want db-new", db.ID)
	}
	if _, ok := db.Properties[PropStatusCol]; !ok {
		t.Error("returned database lacks the status property")
	}
}

func TestCreateDatabase_EventsNeedNoUpdate(t *testing.T) {
	var calls int
	c := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.WriteString(w, `{"id":"db-ev","properties":{}}`)
	})

	db, err := c.CreateDatabase(context.Background(), "page-1", "Sync - Events", EventSchema())
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	if db.ID != "db-ev" || calls != 1 {
		t.Errorf("id = %q calls = %d, want db-ev and 1", db.ID, calls)
	}
}

func TestCreateDatabase_RejectsBadInput(t *testing.T) {
	c := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	ctx := context.Background()

	if _, err := c.CreateDatabase(ctx, "", "x", TaskSchema()); !errors.Is(err, ErrValidation) {
		t.Errorf("empty parent: err = %v, want ErrValidation", err)
	}
	bad := &Schema{Name: "bad", Version: 1, Properties: map[string]PropertyType{PropUID: PropRichText}}
	if _, err := c.CreateDatabase(ctx, "page-1", "x", bad); !errors.Is(err, ErrSchema) {
		t.Errorf("no title: err = %v, want ErrSchema", err)
	}
}

func TestEnsureStatusProperty_SkipsExisting(t *testing.T) {
	c := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	db := &Database{ID: "db-1", Properties: map[string]DatabaseProperty{
		PropStatusCol: {Name: PropStatusCol, Type: PropStatus},
	}}
	got, err := c.EnsureStatusProperty(context.Background(), db, PropStatusCol)
	if err != nil {
		t.Fatalf("EnsureStatusProperty failed: %v", err)
	}
	if got != db {
		t.Error("expected the database unchanged")
	}
}

func TestStatusOptions_NoCommas(t *testing.T) {
	list := newOptionList([]string{"To Do", "Blocked, waiting", "  "})
	var names []string
	for _, o := range list.Options {
		names = append(names, o.Name)
	}
	if want := []string{"To Do", "Blocked  waiting"}; !reflect.DeepEqual(names, want) {
		t.Errorf("options = %q, want %q", names, want)
	}
}
