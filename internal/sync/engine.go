package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/studysync/studysync/internal/notion"
	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/types"
)

// Config configures an Engine.
type Config struct {
	// TaskDatabaseID and EventDatabaseID name the target databases. An
	// empty id makes every item of that kind fail validation.
	TaskDatabaseID  string
	EventDatabaseID string

	// Schemas used to build payloads. Defaults to notion.DefaultSchemas().
	Schemas *notion.Schemas

	// DryRun counts what would change without calling the remote or
	// touching sync records.
	DryRun bool

	// Logger defaults to stderr with a "[sync] " prefix.
	Logger *log.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine reconciles the local store with the remote workspace.
type Engine struct {
	store  *store.Store
	remote Remote
	cfg    Config
	logger *log.Logger

	last atomic.Pointer[Report]
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeUpdated
)

// New creates an Engine.
//
// Example:
//
//	client, _ := notion.New(&notion.Config{Token: token})
//	engine, err := sync.New(st, client, &sync.Config{
//	    TaskDatabaseID:  "…",
//	    EventDatabaseID: "…",
//	})
//	report, err := engine.Reconcile(ctx)
func New(st *store.Store, remote Remote, cfg *Config) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote is required")
	}
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Schemas == nil {
		c.Schemas = notion.DefaultSchemas()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	logger := c.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{store: st, remote: remote, cfg: c, logger: logger}, nil
}

// LastReport returns the report of the most recent pass, or nil.
func (e *Engine) LastReport() *Report {
	return e.last.Load()
}

// Reconcile runs one pass over every local item.
//
// It returns a nil report only when the pass could not start: another pass
// holds the store, the store could not be loaded, or the credential check
// failed. The store is loaded and validated before any remote call.
// Otherwise the report is always returned, together with an error
// when the pass was aborted or its final save failed.
func (e *Engine) Reconcile(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: e.cfg.Now(), DryRun: e.cfg.DryRun}

	tx, err := e.beginSync()
	if err != nil {
		return nil, err
	}

	if !e.cfg.DryRun {
		if err := e.remote.Ping(ctx); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("credential check failed: %w", err)
		}
	}

	items := tx.Items()
	e.logger.Printf("Reconciling %d items", len(items))

	var runErr error
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		out, err := e.reconcileItem(ctx, tx, it)
		if err != nil {
			e.logger.Printf("WARNING: %s %s (%s) failed: %v", it.ItemKind(), it.ItemID(), it.ItemTitle(), err)
			report.addFailure(it, err)
			if abortsRun(ctx, err) {
				runErr = err
				break
			}
			continue
		}
		switch out {
		case outcomeCreated:
			report.Created++
		case outcomeUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
	}

	var saveErr error
	if e.cfg.DryRun {
		tx.Rollback()
	} else {
		saveErr = tx.Commit()
	}

	report.Aborted = runErr != nil
	report.FinishedAt = e.cfg.Now()
	e.last.Store(report)
	e.logger.Printf("Reconcile complete: %s in %s", report.Summary(), report.Duration().Round(time.Millisecond))

	if runErr != nil {
		return report, fmt.Errorf("sync aborted: %w", runErr)
	}
	if saveErr != nil {
		return report, fmt.Errorf("failed to save store: %w", saveErr)
	}
	return report, nil
}

// reconcileItem decides and performs the action for one item.
func (e *Engine) reconcileItem(ctx context.Context, tx *store.Txn, it types.Item) (outcome, error) {
	hash := it.ContentHash()
	rec, synced := tx.SyncRecord(it.ItemKind(), it.ItemID())
	if synced && rec.ContentHash == hash {
		return outcomeSkipped, nil
	}

	dbID, err := e.databaseFor(it.ItemKind())
	if err != nil {
		return outcomeSkipped, err
	}
	payload, err := notion.ItemPayload(e.cfg.Schemas, it)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("failed to build payload: %w", err)
	}

	if !synced {
		if e.cfg.DryRun {
			return outcomeCreated, nil
		}
		ref, err := e.remote.CreatePage(ctx, dbID, payload)
		if err != nil {
			return outcomeSkipped, err
		}
		rec = &types.SyncRecord{
			ItemID:      it.ItemID(),
			Kind:        it.ItemKind(),
			RemoteID:    ref.ID,
			ContentHash: hash,
			LastSynced:  e.cfg.Now(),
		}
		// Persist right away so a crash later in the pass cannot lead to a
		// duplicate page on the next run.
		if err := e.checkpoint(tx, rec); err != nil {
			return outcomeSkipped, err
		}
		e.logger.Printf("Created %s %s -> %s", it.ItemKind(), it.ItemID(), ref.ID)
		return outcomeCreated, nil
	}

	if e.cfg.DryRun {
		return outcomeUpdated, nil
	}
	if err := e.remote.UpdatePage(ctx, notion.RemoteRef{ID: rec.RemoteID}, payload); err != nil {
		return outcomeSkipped, err
	}
	rec.ContentHash = hash
	rec.LastSynced = e.cfg.Now()
	if err := tx.PutSyncRecord(rec); err != nil {
		return outcomeSkipped, fmt.Errorf("%w: %v", errCheckpoint, err)
	}
	e.logger.Printf("Updated %s %s", it.ItemKind(), it.ItemID())
	return outcomeUpdated, nil
}

func (e *Engine) checkpoint(tx *store.Txn, rec *types.SyncRecord) error {
	if err := tx.PutSyncRecord(rec); err != nil {
		return fmt.Errorf("%w: %v", errCheckpoint, err)
	}
	if err := tx.SetPageID(rec.Kind, rec.ItemID, rec.RemoteID); err != nil {
		return fmt.Errorf("%w: %v", errCheckpoint, err)
	}
	if err := tx.Flush(); err != nil {
		return fmt.Errorf("%w: %v", errCheckpoint, err)
	}
	return nil
}

func (e *Engine) databaseFor(kind types.Kind) (string, error) {
	var id string
	switch kind {
	case types.KindTask:
		id = e.cfg.TaskDatabaseID
	case types.KindEvent:
		id = e.cfg.EventDatabaseID
	}
	if id == "" {
		return "", fmt.Errorf("%w: no database configured for %ss", notion.ErrValidation, kind)
	}
	return id, nil
}

// beginSync claims the store for one pass.
func (e *Engine) beginSync() (*store.Txn, error) {
	tx, err := e.store.BeginSync()
	if errors.Is(err, ErrSyncInProgress) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return tx, nil
}

// IsInProgress reports whether err means a pass was already running.
func IsInProgress(err error) bool {
	return errors.Is(err, ErrSyncInProgress)
}
