package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studysync/studysync/internal/types"
)

// CurrentVersion is the document format written by this package.
const CurrentVersion = 1

// Document is the on-disk representation of the store.
type Document struct {
	Version     int                                  `json:"version"`
	Tasks       map[string]*types.Task               `json:"tasks"`
	Events      map[string]*types.Event              `json:"events"`
	SyncRecords map[string]*types.SyncRecord         `json:"sync_records"`
	Schedules   map[string]*types.RepetitionSchedule `json:"schedules"`
}

func newDocument() *Document {
	return &Document{
		Version:     CurrentVersion,
		Tasks:       map[string]*types.Task{},
		Events:      map[string]*types.Event{},
		SyncRecords: map[string]*types.SyncRecord{},
		Schedules:   map[string]*types.RepetitionSchedule{},
	}
}

func (d *Document) clone() *Document {
	c := newDocument()
	c.Version = d.Version
	for k, v := range d.Tasks {
		c.Tasks[k] = v.Clone()
	}
	for k, v := range d.Events {
		c.Events[k] = v.Clone()
	}
	for k, v := range d.SyncRecords {
		r := *v
		c.SyncRecords[k] = &r
	}
	for k, v := range d.Schedules {
		c.Schedules[k] = v.Clone()
	}
	return c
}

func (d *Document) validate() error {
	if d.Version < 1 || d.Version > CurrentVersion {
		return fmt.Errorf("unsupported document version %d", d.Version)
	}
	for id, t := range d.Tasks {
		if t == nil || t.ID != id {
			return fmt.Errorf("task entry %q does not match its id", id)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
	}
	for id, e := range d.Events {
		if e == nil || e.ID != id {
			return fmt.Errorf("event entry %q does not match its id", id)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("event %s: %w", id, err)
		}
	}
	for key, r := range d.SyncRecords {
		if r == nil || recordKey(r.Kind, r.ItemID) != key {
			return fmt.Errorf("sync record entry %q does not match its item", key)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("sync record %s: %w", key, err)
		}
	}
	for id, s := range d.Schedules {
		if s == nil || s.ID != id {
			return fmt.Errorf("schedule entry %q does not match its id", id)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("schedule %s: %w", id, err)
		}
	}
	return nil
}

func recordKey(kind types.Kind, itemID string) string {
	return string(kind) + ":" + itemID
}

// Store is the local source of truth. It is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	doc  *Document

	// modTime and size of the file as last read or written by us.
	modTime time.Time
	size    int64

	// syncing is set while a BeginSync transaction is open.
	syncing atomic.Bool

	now func() time.Time
}

// Open loads the store at path. A missing file yields an empty store;
// the file is created on the first write.
//
// Example:
//
//	st, err := store.Open(filepath.Join(dir, "store.json"))
//	if errors.Is(err, store.ErrCorrupt) {
//	    // refuse to continue, the file needs manual repair
//	}
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	s := &Store{path: path, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// SetClock overrides the time source used for bookkeeping timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) load() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.doc = newDocument()
		s.modTime, s.size = time.Time{}, 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat store %s: %w", s.path, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read store %s: %w", s.path, err)
	}
	doc, err := decode(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	s.doc = doc
	s.modTime, s.size = info.ModTime(), info.Size()
	return nil
}

func decode(data []byte) (*Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	if doc.Tasks == nil {
		doc.Tasks = map[string]*types.Task{}
	}
	if doc.Events == nil {
		doc.Events = map[string]*types.Event{}
	}
	if doc.SyncRecords == nil {
		doc.SyncRecords = map[string]*types.SyncRecord{}
	}
	if doc.Schedules == nil {
		doc.Schedules = map[string]*types.RepetitionSchedule{}
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// refreshLocked reloads the document when another process replaced the file.
func (s *Store) refreshLocked() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat store %s: %w", s.path, err)
	}
	if info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return nil
	}
	return s.load()
}

// saveLocked atomically replaces the store file with doc.
func (s *Store) saveLocked(doc *Document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		s.modTime, s.size = info.ModTime(), info.Size()
	}
	return nil
}

// Update runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *Store) Update(fn func(tx *Txn) error) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// view runs fn with the lock held over the current document.
func (s *Store) view(fn func(doc *Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil {
		return err
	}
	fn(s.doc)
	return nil
}

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	Status      *types.Status
	Category    string
	IncludeDone bool
	DueBefore   time.Time
}

func (f TaskFilter) match(t *types.Task) bool {
	if f.Status != nil {
		if t.Status != *f.Status {
			return false
		}
	} else if !f.IncludeDone && t.IsDone() {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, t.Category) {
		return false
	}
	if !f.DueBefore.IsZero() && (!t.HasDue() || !t.Due.Before(f.DueBefore)) {
		return false
	}
	return true
}

// PutTask inserts or replaces a task. CreatedAt is preserved for existing
// tasks and UpdatedAt is set to the current time.
func (s *Store) PutTask(t *types.Task) error {
	return s.Update(func(tx *Txn) error { return tx.PutTask(t) })
}

// GetTask returns a copy of the task with the given id.
func (s *Store) GetTask(id string) (*types.Task, error) {
	var out *types.Task
	err := s.view(func(doc *Document) {
		if t, ok := doc.Tasks[id]; ok {
			out = t.Clone()
		}
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return out, nil
}

// FindTask resolves a full id or a unique id prefix.
func (s *Store) FindTask(ref string) (*types.Task, error) {
	var (
		out     *types.Task
		matches int
	)
	err := s.view(func(doc *Document) {
		if t, ok := doc.Tasks[ref]; ok {
			out, matches = t.Clone(), 1
			return
		}
		for id, t := range doc.Tasks {
			if strings.HasPrefix(id, ref) {
				out = t.Clone()
				matches++
			}
		}
	})
	if err != nil {
		return nil, err
	}
	switch {
	case matches == 0:
		return nil, fmt.Errorf("task %s: %w", ref, ErrNotFound)
	case matches > 1:
		return nil, fmt.Errorf("task prefix %q is ambiguous (%d matches)", ref, matches)
	}
	return out, nil
}

// ListTasks returns copies of matching tasks ordered by due date, then id.
// Tasks without a due date sort last.
func (s *Store) ListTasks(filter TaskFilter) ([]*types.Task, error) {
	var out []*types.Task
	err := s.view(func(doc *Document) {
		for _, t := range doc.Tasks {
			if filter.match(t) {
				out = append(out, t.Clone())
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasDue() != b.HasDue() {
			return a.HasDue()
		}
		if !a.Due.Equal(b.Due) {
			return a.Due.Before(b.Due)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// DeleteTask removes a task and its sync record. The remote page, if any,
// is left in place.
func (s *Store) DeleteTask(id string) error {
	return s.Update(func(tx *Txn) error { return tx.DeleteTask(id) })
}

// PutEvent inserts or replaces an event.
func (s *Store) PutEvent(e *types.Event) error {
	return s.Update(func(tx *Txn) error { return tx.PutEvent(e) })
}

// GetEvent returns a copy of the event with the given id.
func (s *Store) GetEvent(id string) (*types.Event, error) {
	var out *types.Event
	err := s.view(func(doc *Document) {
		if e, ok := doc.Events[id]; ok {
			out = e.Clone()
		}
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return out, nil
}

// ListEvents returns copies of events overlapping [from, to) ordered by
// start time. A zero bound is open.
func (s *Store) ListEvents(from, to time.Time) ([]*types.Event, error) {
	var out []*types.Event
	err := s.view(func(doc *Document) {
		for _, e := range doc.Events {
			if !from.IsZero() && !e.End.After(from) && !e.Start.Equal(from) {
				continue
			}
			if !to.IsZero() && !e.Start.Before(to) {
				continue
			}
			out = append(out, e.Clone())
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteEvent removes an event and its sync record.
func (s *Store) DeleteEvent(id string) error {
	return s.Update(func(tx *Txn) error { return tx.DeleteEvent(id) })
}

// PutSchedule inserts or replaces a repetition schedule.
func (s *Store) PutSchedule(sched *types.RepetitionSchedule) error {
	return s.Update(func(tx *Txn) error { return tx.PutSchedule(sched) })
}

// GetSchedule returns a copy of the schedule with the given id.
func (s *Store) GetSchedule(id string) (*types.RepetitionSchedule, error) {
	var out *types.RepetitionSchedule
	err := s.view(func(doc *Document) {
		if sc, ok := doc.Schedules[id]; ok {
			out = sc.Clone()
		}
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return out, nil
}

// ListSchedules returns all schedules ordered by id.
func (s *Store) ListSchedules() ([]*types.RepetitionSchedule, error) {
	var out []*types.RepetitionSchedule
	err := s.view(func(doc *Document) {
		for _, sc := range doc.Schedules {
			out = append(out, sc.Clone())
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteSchedule removes a schedule.
func (s *Store) DeleteSchedule(id string) error {
	return s.Update(func(tx *Txn) error {
		if _, ok := tx.doc.Schedules[id]; !ok {
			return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
		}
		delete(tx.doc.Schedules, id)
		tx.dirty = true
		return nil
	})
}

// SyncRecords returns all sync records ordered by kind and item id.
func (s *Store) SyncRecords() ([]*types.SyncRecord, error) {
	var out []*types.SyncRecord
	err := s.view(func(doc *Document) {
		for _, r := range doc.SyncRecords {
			c := *r
			out = append(out, &c)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return recordKey(out[i].Kind, out[i].ItemID) < recordKey(out[j].Kind, out[j].ItemID)
	})
	return out, nil
}

// Stats summarizes the store contents.
type Stats struct {
	Tasks     int
	Done      int
	Events    int
	Synced    int
	Schedules int
}

// Stats returns item counts.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.view(func(doc *Document) {
		st.Tasks = len(doc.Tasks)
		for _, t := range doc.Tasks {
			if t.IsDone() {
				st.Done++
			}
		}
		st.Events = len(doc.Events)
		st.Synced = len(doc.SyncRecords)
		st.Schedules = len(doc.Schedules)
	})
	return st, err
}
