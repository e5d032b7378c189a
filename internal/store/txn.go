package store

import (
	"fmt"
	"sort"

	"github.com/studysync/studysync/internal/types"
)

// Txn is an exclusive view of the store. It works on a private copy of the
// document; Flush persists that copy without ending the transaction, Commit
// persists it and releases the store, Rollback discards unflushed changes.
type Txn struct {
	s     *Store
	doc   *Document
	dirty bool
	done  bool
	// sync marks a transaction started by BeginSync.
	sync bool
}

// Begin starts an exclusive transaction. Every other Store operation blocks
// until the transaction ends.
func (s *Store) Begin() (*Txn, error) {
	s.mu.Lock()
	if err := s.refreshLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return &Txn{s: s, doc: s.doc.clone()}, nil
}

// BeginSync starts the transaction of a sync pass. At most one sync pass
// holds a store at a time: a second BeginSync fails with ErrSyncInProgress
// instead of waiting. The document is re-read and validated before BeginSync
// returns, so a corrupt file is reported before the caller does anything
// else.
func (s *Store) BeginSync() (*Txn, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	tx, err := s.Begin()
	if err != nil {
		s.syncing.Store(false)
		return nil, err
	}
	tx.sync = true
	return tx, nil
}

// Items returns every task then every event, each group ordered by id.
// The returned values are copies owned by the caller.
func (tx *Txn) Items() []types.Item {
	tasks := make([]*types.Task, 0, len(tx.doc.Tasks))
	for _, t := range tx.doc.Tasks {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	events := make([]*types.Event, 0, len(tx.doc.Events))
	for _, e := range tx.doc.Events {
		events = append(events, e.Clone())
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })

	items := make([]types.Item, 0, len(tasks)+len(events))
	for _, t := range tasks {
		items = append(items, t)
	}
	for _, e := range events {
		items = append(items, e)
	}
	return items
}

// Task returns a copy of a task in the transaction's view.
func (tx *Txn) Task(id string) (*types.Task, bool) {
	t, ok := tx.doc.Tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Event returns a copy of an event in the transaction's view.
func (tx *Txn) Event(id string) (*types.Event, bool) {
	e, ok := tx.doc.Events[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// PutTask validates and stores a copy of t.
func (tx *Txn) PutTask(t *types.Task) error {
	if tx.done {
		return ErrTxDone
	}
	c := t.Clone()
	now := tx.s.now()
	if old, ok := tx.doc.Tasks[c.ID]; ok {
		c.CreatedAt = old.CreatedAt
		if c.PageID == "" {
			c.PageID = old.PageID
		}
	}
	c.UpdatedAt = now
	c.SetDefaults(now)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	tx.doc.Tasks[c.ID] = c
	tx.dirty = true
	return nil
}

// PutEvent validates and stores a copy of e.
func (tx *Txn) PutEvent(e *types.Event) error {
	if tx.done {
		return ErrTxDone
	}
	c := e.Clone()
	now := tx.s.now()
	if old, ok := tx.doc.Events[c.ID]; ok {
		c.CreatedAt = old.CreatedAt
		if c.PageID == "" {
			c.PageID = old.PageID
		}
	}
	c.UpdatedAt = now
	c.SetDefaults(now)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	tx.doc.Events[c.ID] = c
	tx.dirty = true
	return nil
}

// PutSchedule validates and stores a copy of sched.
func (tx *Txn) PutSchedule(sched *types.RepetitionSchedule) error {
	if tx.done {
		return ErrTxDone
	}
	c := sched.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.s.now()
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	if old, ok := tx.doc.Schedules[c.ID]; ok && c.Cursor < old.Cursor {
		return fmt.Errorf("schedule %s: cursor cannot move back from %d to %d", c.ID, old.Cursor, c.Cursor)
	}
	tx.doc.Schedules[c.ID] = c
	tx.dirty = true
	return nil
}

// DeleteTask removes a task and its sync record.
func (tx *Txn) DeleteTask(id string) error {
	if tx.done {
		return ErrTxDone
	}
	if _, ok := tx.doc.Tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	delete(tx.doc.Tasks, id)
	delete(tx.doc.SyncRecords, recordKey(types.KindTask, id))
	tx.dirty = true
	return nil
}

// DeleteEvent removes an event and its sync record.
func (tx *Txn) DeleteEvent(id string) error {
	if tx.done {
		return ErrTxDone
	}
	if _, ok := tx.doc.Events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	delete(tx.doc.Events, id)
	delete(tx.doc.SyncRecords, recordKey(types.KindEvent, id))
	tx.dirty = true
	return nil
}

// SyncRecord returns a copy of the record for an item.
func (tx *Txn) SyncRecord(kind types.Kind, itemID string) (*types.SyncRecord, bool) {
	r, ok := tx.doc.SyncRecords[recordKey(kind, itemID)]
	if !ok {
		return nil, false
	}
	c := *r
	return &c, true
}

// PutSyncRecord stores a record for an existing item.
func (tx *Txn) PutSyncRecord(r *types.SyncRecord) error {
	if tx.done {
		return ErrTxDone
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid sync record: %w", err)
	}
	switch r.Kind {
	case types.KindTask:
		if _, ok := tx.doc.Tasks[r.ItemID]; !ok {
			return fmt.Errorf("task %s: %w", r.ItemID, ErrNotFound)
		}
	case types.KindEvent:
		if _, ok := tx.doc.Events[r.ItemID]; !ok {
			return fmt.Errorf("event %s: %w", r.ItemID, ErrNotFound)
		}
	}
	c := *r
	tx.doc.SyncRecords[recordKey(r.Kind, r.ItemID)] = &c
	tx.dirty = true
	return nil
}

// SetPageID records the remote back-reference on an item without touching
// its UpdatedAt timestamp.
func (tx *Txn) SetPageID(kind types.Kind, itemID, pageID string) error {
	if tx.done {
		return ErrTxDone
	}
	switch kind {
	case types.KindTask:
		t, ok := tx.doc.Tasks[itemID]
		if !ok {
			return fmt.Errorf("task %s: %w", itemID, ErrNotFound)
		}
		t.PageID = pageID
	case types.KindEvent:
		e, ok := tx.doc.Events[itemID]
		if !ok {
			return fmt.Errorf("event %s: %w", itemID, ErrNotFound)
		}
		e.PageID = pageID
	default:
		return fmt.Errorf("unknown item kind %q", kind)
	}
	tx.dirty = true
	return nil
}

// Flush persists the transaction's document and keeps the transaction open.
// It is a no-op when nothing changed since the last flush.
func (tx *Txn) Flush() error {
	if tx.done {
		return ErrTxDone
	}
	if !tx.dirty {
		return nil
	}
	if err := tx.s.saveLocked(tx.doc); err != nil {
		return err
	}
	tx.s.doc = tx.doc.clone()
	tx.dirty = false
	return nil
}

// Commit flushes pending changes and releases the store.
func (tx *Txn) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	err := tx.Flush()
	tx.finish()
	return err
}

// Rollback discards changes made since the last Flush and releases the
// store. Calling it after Commit is a no-op.
func (tx *Txn) Rollback() {
	if tx.done {
		return
	}
	tx.finish()
}

func (tx *Txn) finish() {
	tx.done = true
	if tx.sync {
		tx.s.syncing.Store(false)
	}
	tx.s.mu.Unlock()
}
