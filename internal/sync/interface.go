package sync

import (
	"context"

	"github.com/studysync/studysync/internal/notion"
)

// Remote is the part of the workspace client the engine uses.
// *notion.Client implements it.
type Remote interface {
	// Ping verifies credentials before any item is touched.
	Ping(ctx context.Context) error

	// CreatePage creates a page in a database.
	CreatePage(ctx context.Context, databaseID string, p *notion.Payload) (notion.RemoteRef, error)

	// UpdatePage overwrites the properties of an existing page.
	UpdatePage(ctx context.Context, ref notion.RemoteRef, p *notion.Payload) error

	// QueryDatabase pages through a database; used by Adopt.
	QueryDatabase(databaseID string, filter notion.Filter) *notion.Pager
}

// Reconciler runs one reconcile pass. The daemon and dashboard depend on
// this rather than on *Engine.
type Reconciler interface {
	Reconcile(ctx context.Context) (*Report, error)
}

var _ Remote = (*notion.Client)(nil)
