package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/studysync/studysync/internal/sync"
	"github.com/studysync/studysync/internal/types"
)

// testDBPath returns a temporary path for the ledger
func testDBPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "nested", "history.db")
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testReport(created, failed int) *sync.Report {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	r := &sync.Report{
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Created:    created,
		Skipped:    1,
		Failed:     failed,
	}
	for i := 0; i < failed; i++ {
		r.Failures = append(r.Failures, sync.Failure{
			ItemID:    "t-bad",
			Kind:      types.KindTask,
			Title:     "Broken",
			ErrorKind: sync.ErrKindValidation,
			Message:   "title is empty",
		})
	}
	return r
}

func TestOpen_CreatesTables(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"runs", "failures"} {
		var count int
		err := db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}

	if err := db.InitSchema(); err != nil {
		t.Errorf("Second InitSchema() failed: %v", err)
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.RecordRun(ctx, testReport(3, 1), nil)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := db.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.Created != 3 || r.Skipped != 1 || r.Failed != 1 || r.Error != "" {
		t.Errorf("run = %+v", r)
	}
	if r.FinishedAt.Sub(r.StartedAt) != 2*time.Second {
		t.Errorf("duration = %v", r.FinishedAt.Sub(r.StartedAt))
	}

	failures, err := db.Failures(ctx, id)
	if err != nil {
		t.Fatalf("Failures failed: %v", err)
	}
	if len(failures) != 1 || failures[0].ErrorKind != sync.ErrKindValidation || failures[0].Kind != types.KindTask {
		t.Errorf("failures = %+v", failures)
	}
}

func TestRecordRun_AbortedWithError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	report := testReport(1, 0)
	report.Aborted = true
	if _, err := db.RecordRun(ctx, report, errors.New("unauthorized")); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, _ := db.RecentRuns(ctx, 1)
	if len(runs) != 1 || !runs[0].Aborted || runs[0].Error != "unauthorized" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestItemFailures_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 3; i++ {
		id, err := db.RecordRun(ctx, testReport(0, 1), nil)
		if err != nil {
			t.Fatal(err)
		}
		last = id
	}

	failures, err := db.ItemFailures(ctx, "t-bad", 2)
	if err != nil {
		t.Fatalf("ItemFailures failed: %v", err)
	}
	if len(failures) != 2 {
		t.Errorf("got %d failures, want 2", len(failures))
	}
	if none, _ := db.ItemFailures(ctx, "t-other", 0); len(none) != 0 {
		t.Errorf("unexpected failures for t-other: %+v", none)
	}

	runs, _ := db.RecentRuns(ctx, 0)
	if runs[0].ID != last {
		t.Errorf("newest run = %d, want %d", runs[0].ID, last)
	}
}

func TestPrune(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := db.RecordRun(ctx, testReport(1, 1), nil); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := db.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	runs, _ := db.RecentRuns(ctx, 10)
	if len(runs) != 2 {
		t.Errorf("got %d runs after prune, want 2", len(runs))
	}
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM failures`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("failures after prune = %d, want 2", count)
	}
}
