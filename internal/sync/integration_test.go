package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/studysync/studysync/internal/notion"
)

// TestReconcile_AgainstHTTPServer drives the real client against a fake API
// that rate limits every request for the second task.
func TestReconcile_AgainstHTTPServer(t *testing.T) {
	var pageSeq atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/users/me":
			_, _ = io.WriteString(w, `{"object":"user","id":"bot","type":"bot"}`)
		case r.Method == "POST" && r.URL.Path == "/pages":
			var body struct {
				Properties map[string]json.RawMessage `json:"properties"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			page := notion.Page{Properties: body.Properties}
			if page.PlainText(notion.PropUID) == "t-2" {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, `{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`)
				return
			}
			_, _ = fmt.Fprintf(w, `{"object":"page","id":"page-%d"}`, pageSeq.Add(1))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := notion.New(&notion.Config{
		Token:          "secret",
		BaseURL:        srv.URL,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Logger:         log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatal(err)
	}

	engine, st := setupTestEngine(t, client)
	createTestTask(t, st, "t-1", "One")
	createTestTask(t, st, "t-2", "Two")
	createTestTask(t, st, "t-3", "Three")

	report, err := engine.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if report.Created != 2 || report.Failed != 1 {
		t.Fatalf("report = %s, want created=2 failed=1", report.Summary())
	}
	if f := report.Failures[0]; f.ItemID != "t-2" || f.ErrorKind != ErrKindRateLimited {
		t.Errorf("failure = %+v", f)
	}

	for _, id := range []string{"t-1", "t-3"} {
		task, err := st.GetTask(id)
		if err != nil {
			t.Fatal(err)
		}
		if task.PageID == "" {
			t.Errorf("%s has no page id", id)
		}
	}
	if task, _ := st.GetTask("t-2"); task.PageID != "" {
		t.Errorf("t-2 page id = %q, want empty", task.PageID)
	}
}
