package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/studysync/studysync/internal/types"
)

// setupTestStore opens a store in a temp directory.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s, path
}

func createTestTask(t *testing.T, s *Store, id, title string) *types.Task {
	t.Helper()

	task := &types.Task{
		ID:       id,
		Title:    title,
		Due:      time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Priority: types.PriorityMedium,
	}
	if err := s.PutTask(task); err != nil {
		t.Fatalf("PutTask(%s) failed: %v", id, err)
	}
	return task
}

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, path := setupTestStore(t)

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Tasks != 0 || stats.Events != 0 {
		t.Errorf("expected empty store, got %+v", stats)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("store file should not exist before first write")
	}
}

func TestOpen_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not json"},
		{"empty file", ""},
		{"future version", `{"version": 99}`},
		{"invalid task", `{"version":1,"tasks":{"a":{"id":"a","title":""}}}`},
		{"mismatched id", `{"version":1,"tasks":{"a":{"id":"b","title":"x"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "store.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			_, err := Open(path)
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Open() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestPutTask_PersistsAtomically(t *testing.T) {
	s, path := setupTestStore(t)
	createTestTask(t, s, "t-1", "Essay draft")

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := reopened.GetTask("t-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "Essay draft" {
		t.Errorf("Title = %q, want %q", got.Title, "Essay draft")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps were not set")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestPutTask_PreservesCreatedAtAndPageID(t *testing.T) {
	s, _ := setupTestStore(t)
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return first })
	createTestTask(t, s, "t-1", "A")

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.SetPageID(types.KindTask, "t-1", "page-1"); err != nil {
		t.Fatalf("SetPageID failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	later := first.Add(48 * time.Hour)
	s.SetClock(func() time.Time { return later })
	edited, _ := s.GetTask("t-1")
	edited.PageID = ""
	edited.Title = "B"
	if err := s.PutTask(edited); err != nil {
		t.Fatalf("PutTask failed: %v", err)
	}

	got, _ := s.GetTask("t-1")
	if !got.CreatedAt.Equal(first) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, first)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}
	if got.PageID != "page-1" {
		t.Errorf("PageID = %q, want page-1", got.PageID)
	}
}

func TestPutTask_RejectsInvalid(t *testing.T) {
	s, _ := setupTestStore(t)
	err := s.PutTask(&types.Task{ID: "x"})
	if err == nil || !strings.Contains(err.Error(), "title is required") {
		t.Errorf("PutTask() error = %v, want title is required", err)
	}
}

func TestDeleteTask_RemovesSyncRecord(t *testing.T) {
	s, _ := setupTestStore(t)
	createTestTask(t, s, "t-1", "A")

	err := s.Update(func(tx *Txn) error {
		return tx.PutSyncRecord(&types.SyncRecord{
			ItemID: "t-1", Kind: types.KindTask, RemoteID: "r-1", ContentHash: "h",
		})
	})
	if err != nil {
		t.Fatalf("PutSyncRecord failed: %v", err)
	}

	if err := s.DeleteTask("t-1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	recs, _ := s.SyncRecords()
	if len(recs) != 0 {
		t.Errorf("expected sync record removed, got %d", len(recs))
	}
	if err := s.DeleteTask("t-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestPutSyncRecord_RequiresItem(t *testing.T) {
	s, _ := setupTestStore(t)
	err := s.Update(func(tx *Txn) error {
		return tx.PutSyncRecord(&types.SyncRecord{ItemID: "nope", Kind: types.KindTask, RemoteID: "r"})
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestTxn_RollbackDiscardsUnflushed(t *testing.T) {
	s, path := setupTestStore(t)
	createTestTask(t, s, "t-1", "A")

	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.SetPageID(types.KindTask, "t-1", "flushed"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := tx.PutTask(&types.Task{ID: "t-2", Title: "B"}); err != nil {
		t.Fatal(err)
	}
	tx.Rollback()

	if _, err := s.GetTask("t-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rolled back task is visible: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, _ := reopened.GetTask("t-1")
	if got.PageID != "flushed" {
		t.Errorf("flushed change lost: PageID = %q", got.PageID)
	}

	if err := tx.Commit(); !errors.Is(err, ErrTxDone) {
		t.Errorf("Commit after Rollback error = %v, want ErrTxDone", err)
	}
}

func TestTxn_ExcludesOtherOperations(t *testing.T) {
	s, _ := setupTestStore(t)
	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_, _ = s.ListTasks(TaskFilter{})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("ListTasks ran while a transaction was open")
	case <-time.After(50 * time.Millisecond):
	}

	tx.Rollback()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ListTasks did not proceed after Rollback")
	}
}

func TestItems_OrderedTasksThenEvents(t *testing.T) {
	s, _ := setupTestStore(t)
	createTestTask(t, s, "t-b", "B")
	createTestTask(t, s, "t-a", "A")
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if err := s.PutEvent(&types.Event{ID: "e-1", Title: "Lab", Start: start, End: start.Add(time.Hour)}); err != nil {
		t.Fatalf("PutEvent failed: %v", err)
	}

	tx, err := s.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	var ids []string
	for _, it := range tx.Items() {
		ids = append(ids, it.ItemID())
	}
	want := "t-a,t-b,e-1"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("Items order = %s, want %s", got, want)
	}
}

func TestListTasks_Filter(t *testing.T) {
	s, _ := setupTestStore(t)
	createTestTask(t, s, "t-1", "A")
	done := createTestTask(t, s, "t-2", "B")
	done.Status = types.StatusDone
	if err := s.PutTask(done); err != nil {
		t.Fatal(err)
	}
	if err := s.PutTask(&types.Task{ID: "t-3", Title: "no due"}); err != nil {
		t.Fatal(err)
	}

	open, _ := s.ListTasks(TaskFilter{})
	if len(open) != 2 {
		t.Fatalf("open tasks = %d, want 2", len(open))
	}
	if open[len(open)-1].ID != "t-3" {
		t.Errorf("task without due date should sort last, got %s", open[len(open)-1].ID)
	}

	all, _ := s.ListTasks(TaskFilter{IncludeDone: true})
	if len(all) != 3 {
		t.Errorf("all tasks = %d, want 3", len(all))
	}

	st := types.StatusDone
	onlyDone, _ := s.ListTasks(TaskFilter{Status: &st})
	if len(onlyDone) != 1 || onlyDone[0].ID != "t-2" {
		t.Errorf("done filter returned %v", onlyDone)
	}
}

func TestFindTask_Prefix(t *testing.T) {
	s, _ := setupTestStore(t)
	createTestTask(t, s, "abc123", "A")
	createTestTask(t, s, "abd456", "B")

	if got, err := s.FindTask("abc"); err != nil || got.ID != "abc123" {
		t.Errorf("FindTask(abc) = %v, %v", got, err)
	}
	if _, err := s.FindTask("ab"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("FindTask(ab) error = %v, want ambiguous", err)
	}
	if _, err := s.FindTask("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindTask(zzz) error = %v, want ErrNotFound", err)
	}
}

func TestPutSchedule_CursorNeverDecreases(t *testing.T) {
	s, _ := setupTestStore(t)
	sched := &types.RepetitionSchedule{
		ID: "s-1", SourceID: "t-1", Anchor: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Offsets: types.DefaultOffsets(), Cursor: 2,
	}
	if err := s.PutSchedule(sched); err != nil {
		t.Fatalf("PutSchedule failed: %v", err)
	}
	sched.Cursor = 1
	if err := s.PutSchedule(sched); err == nil {
		t.Error("expected error moving cursor back")
	}
}

func TestRefresh_PicksUpExternalWrites(t *testing.T) {
	s, path := setupTestStore(t)
	createTestTask(t, s, "t-1", "A")

	other, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	// Ensure a different size so the change is detected even on coarse
	// modification-time filesystems.
	createTestTask(t, other, "t-2", "a much longer title than the first one")

	got, err := s.GetTask("t-2")
	if err != nil {
		t.Fatalf("GetTask after external write failed: %v", err)
	}
	if got.Title == "" {
		t.Error("external task not loaded")
	}
}

func TestBeginSync_RejectsSecondPass(t *testing.T) {
	s, _ := setupTestStore(t)
	createTestTask(t, s, "t-1", "One")

	tx, err := s.BeginSync()
	if err != nil {
		t.Fatalf("BeginSync failed: %v", err)
	}
	if _, err := s.BeginSync(); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("second BeginSync error = %v, want ErrSyncInProgress", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	tx, err = s.BeginSync()
	if err != nil {
		t.Fatalf("BeginSync after Commit failed: %v", err)
	}
	tx.Rollback()
	tx.Rollback()

	// A plain transaction does not claim the sync slot.
	plain, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	plain.Rollback()
	tx, err = s.BeginSync()
	if err != nil {
		t.Fatalf("BeginSync after Rollback failed: %v", err)
	}
	tx.Rollback()
}

func TestBeginSync_CorruptFileReleasesSlot(t *testing.T) {
	s, path := setupTestStore(t)
	createTestTask(t, s, "t-1", "One")

	if err := os.WriteFile(path, []byte("{garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BeginSync(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("BeginSync error = %v, want ErrCorrupt", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	tx, err := s.BeginSync()
	if err != nil {
		t.Fatalf("BeginSync after repair failed: %v", err)
	}
	tx.Rollback()
}
