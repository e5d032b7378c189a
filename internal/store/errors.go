package store

import "errors"

var (
	// ErrCorrupt indicates the store file exists but cannot be loaded.
	ErrCorrupt = errors.New("local store corrupt")

	// ErrNotFound indicates the requested item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSyncInProgress is returned by BeginSync while another sync pass
	// holds the store.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrTxDone indicates use of a committed or rolled back transaction.
	ErrTxDone = errors.New("transaction already finished")
)
