package importer

import (
	"fmt"

	"github.com/studysync/studysync/internal/store"
)

// Result counts what Apply wrote.
type Result struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Invalid   int `json:"invalid"`
}

// Apply upserts converted items into st in one transaction. Items whose
// content matches the stored copy are left untouched. Fields the import
// format cannot express (status changes made locally, for example) are
// overwritten by the file.
func Apply(st *store.Store, items *Items) (*Result, error) {
	res := &Result{Invalid: len(items.Errors)}
	err := st.Update(func(tx *store.Txn) error {
		for _, t := range items.Tasks {
			if old, ok := tx.Task(t.ID); ok {
				if old.ContentHash() == t.ContentHash() {
					res.Unchanged++
					continue
				}
				res.Updated++
			} else {
				res.Created++
			}
			if err := tx.PutTask(t); err != nil {
				return fmt.Errorf("task %s: %w", t.ID, err)
			}
		}
		for _, e := range items.Events {
			if old, ok := tx.Event(e.ID); ok {
				if old.ContentHash() == e.ContentHash() {
					res.Unchanged++
					continue
				}
				res.Updated++
			} else {
				res.Created++
			}
			if err := tx.PutEvent(e); err != nil {
				return fmt.Errorf("event %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
