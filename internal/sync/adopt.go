package sync

import (
	"context"
	"fmt"

	"github.com/studysync/studysync/internal/notion"
	"github.com/studysync/studysync/internal/types"
)

// AdoptReport is the outcome of Adopt.
type AdoptReport struct {
	// Scanned counts remote pages read.
	Scanned int `json:"scanned"`
	// Adopted counts local items linked to an existing page.
	Adopted int `json:"adopted"`
	// Unlinked counts local items still without a record afterwards.
	Unlinked int `json:"unlinked"`
}

// Adopt links local items that have no sync record to existing remote pages
// carrying the item's id in their UID property. It is meant for a store
// that was rebuilt or copied from another machine: without it the next pass
// would create duplicate pages.
//
// Adopted records get an empty content hash, so the next Reconcile pushes
// the local content to the linked page.
func (e *Engine) Adopt(ctx context.Context) (*AdoptReport, error) {
	tx, err := e.beginSync()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	unlinked := map[types.Kind]map[string]bool{
		types.KindTask:  {},
		types.KindEvent: {},
	}
	for _, it := range tx.Items() {
		if _, ok := tx.SyncRecord(it.ItemKind(), it.ItemID()); !ok {
			unlinked[it.ItemKind()][it.ItemID()] = true
		}
	}

	report := &AdoptReport{}
	for _, kind := range []types.Kind{types.KindTask, types.KindEvent} {
		if len(unlinked[kind]) == 0 {
			continue
		}
		dbID, err := e.databaseFor(kind)
		if err != nil {
			e.logger.Printf("Skipping %ss: %v", kind, err)
			continue
		}

		for page, err := range e.remote.QueryDatabase(dbID, nil).All(ctx) {
			if err != nil {
				return nil, fmt.Errorf("failed to query %s database: %w", kind, err)
			}
			report.Scanned++
			if page.Archived {
				continue
			}
			uid := page.PlainText(notion.PropUID)
			if !unlinked[kind][uid] {
				continue
			}
			rec := &types.SyncRecord{
				ItemID:     uid,
				Kind:       kind,
				RemoteID:   page.ID,
				LastSynced: e.cfg.Now(),
			}
			if e.cfg.DryRun {
				delete(unlinked[kind], uid)
				report.Adopted++
				continue
			}
			if err := tx.PutSyncRecord(rec); err != nil {
				return nil, err
			}
			if err := tx.SetPageID(kind, uid, page.ID); err != nil {
				return nil, err
			}
			delete(unlinked[kind], uid)
			report.Adopted++
			e.logger.Printf("Adopted %s %s -> %s", kind, uid, page.ID)
		}
	}
	report.Unlinked = len(unlinked[types.KindTask]) + len(unlinked[types.KindEvent])

	if e.cfg.DryRun {
		return report, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to save store: %w", err)
	}
	return report, nil
}
