package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/study"
	syncengine "github.com/studysync/studysync/internal/sync"
	"github.com/studysync/studysync/internal/types"
)

var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)

type fakeSyncer struct {
	calls atomic.Int32
	err   error
	last  atomic.Pointer[syncengine.Report]
}

func (f *fakeSyncer) Reconcile(ctx context.Context) (*syncengine.Report, error) {
	f.calls.Add(1)
	if errors.Is(f.err, syncengine.ErrSyncInProgress) {
		return nil, f.err
	}
	r := &syncengine.Report{StartedAt: testNow, FinishedAt: testNow, Created: 2}
	if f.err != nil {
		r.Aborted = true
	}
	f.last.Store(r)
	return r, f.err
}

func (f *fakeSyncer) LastReport() *syncengine.Report {
	return f.last.Load()
}

// setupTestServer builds a server over a fresh store without listening.
func setupTestServer(t *testing.T, secret string) (*Server, *store.Store, *fakeSyncer) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	syncer := &fakeSyncer{}
	srv, err := NewServer(st, syncer, &Config{
		Port:      0,
		JWTSecret: secret,
		Logger:    log.New(io.Discard, "", 0),
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv, st, syncer
}

func doRequest(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := setupTestServer(t, "")
	rec := doRequest(t, srv.Handler(), "GET", "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestReport_NoneYet(t *testing.T) {
	srv, _, _ := setupTestServer(t, "")
	if rec := doRequest(t, srv.Handler(), "GET", "/api/report", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSyncThenReport(t *testing.T) {
	srv, _, syncer := setupTestServer(t, "")
	h := srv.Handler()

	rec := doRequest(t, h, "POST", "/api/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body)
	}
	var data ReportData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Report == nil || data.Report.Created != 2 || data.Error != "" {
		t.Errorf("sync response = %+v", data)
	}
	if syncer.calls.Load() != 1 {
		t.Errorf("reconcile calls = %d", syncer.calls.Load())
	}

	if rec := doRequest(t, h, "GET", "/api/report", ""); rec.Code != http.StatusOK {
		t.Errorf("report status = %d", rec.Code)
	}
	if rec := doRequest(t, h, "GET", "/api/sync", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/sync = %d, want 405", rec.Code)
	}
}

func TestSync_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"in progress", syncengine.ErrSyncInProgress, http.StatusConflict},
		{"failed", errors.New("unauthorized"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, syncer := setupTestServer(t, "")
			syncer.err = tt.err
			rec := doRequest(t, srv.Handler(), "POST", "/api/sync", "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestReview(t *testing.T) {
	srv, st, _ := setupTestServer(t, "")
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

	for _, task := range []*types.Task{
		{ID: "a", Title: "Essay", Due: monday.AddDate(0, 0, 1), Status: types.StatusDone, EstimatedHours: 2},
		{ID: "b", Title: "Lab report", Due: monday.AddDate(0, 0, 3), Priority: types.PriorityHigh},
		{ID: "c", Title: "Next week", Due: monday.AddDate(0, 0, 8)},
	} {
		if err := st.PutTask(task); err != nil {
			t.Fatalf("PutTask failed: %v", err)
		}
	}

	rec := doRequest(t, srv.Handler(), "GET", "/api/review", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("review status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		ID       string        `json:"id"`
		Markdown string        `json:"markdown"`
		Metrics  study.Metrics `json:"metrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "weekly-review-2026-03-02" {
		t.Errorf("id = %s", resp.ID)
	}
	if resp.Metrics.Total != 2 || resp.Metrics.Completed != 1 {
		t.Errorf("metrics = %+v", resp.Metrics)
	}
	if !strings.Contains(resp.Markdown, "Lab report") {
		t.Errorf("markdown missing open task:\n%s", resp.Markdown)
	}

	bad := []string{"/api/review?start=March", "/api/review?start=2026-03-09&end=2026-03-02"}
	for _, target := range bad {
		if rec := doRequest(t, srv.Handler(), "GET", target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", target, rec.Code)
		}
	}
}

func TestScheduleNext(t *testing.T) {
	srv, st, _ := setupTestServer(t, "")
	sched, err := study.NewSchedule("t-1", time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.PutSchedule(sched); err != nil {
		t.Fatalf("PutSchedule failed: %v", err)
	}

	rec := doRequest(t, srv.Handler(), "GET", "/api/schedules/"+sched.ID+"/next", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp NextReviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Next == nil || *resp.Next != "2026-03-03" || !resp.Due || len(resp.Remaining) != 5 {
		t.Errorf("next review = %+v", resp)
	}

	if rec := doRequest(t, srv.Handler(), "GET", "/api/schedules/missing/next", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing schedule = %d, want 404", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	srv, _, _ := setupTestServer(t, secret)
	h := srv.Handler()

	if rec := doRequest(t, h, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health should stay open, got %d", rec.Code)
	}
	if rec := doRequest(t, h, "POST", "/api/sync", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", rec.Code)
	}

	wrong, err := IssueToken("other-secret", "me", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if rec := doRequest(t, h, "POST", "/api/sync", wrong); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret = %d, want 401", rec.Code)
	}

	expired, _ := IssueToken(secret, "me", -time.Minute)
	if rec := doRequest(t, h, "POST", "/api/sync", expired); rec.Code != http.StatusUnauthorized {
		t.Errorf("expired token = %d, want 401", rec.Code)
	}

	good, _ := IssueToken(secret, "me", time.Hour)
	if rec := doRequest(t, h, "POST", "/api/sync", good); rec.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", rec.Code)
	}
}

func TestWebSocket_ReceivesReports(t *testing.T) {
	srv, _, _ := setupTestServer(t, "")
	if err := srv.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+srv.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != MessageTypeHello {
		t.Errorf("first message = %s, want hello", msg.Type)
	}

	srv.PublishReport(&syncengine.Report{Updated: 4}, nil)
	msg := read()
	if msg.Type != MessageTypeSyncReport {
		t.Fatalf("message type = %s", msg.Type)
	}
	var data ReportData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Report == nil || data.Report.Updated != 4 {
		t.Errorf("report = %+v", data.Report)
	}
}
