package sync

import (
	"context"
	"errors"

	"github.com/studysync/studysync/internal/notion"
	"github.com/studysync/studysync/internal/store"
)

var (
	// ErrSyncInProgress is returned when a pass is already running on the
	// same store, from this engine or any other.
	ErrSyncInProgress = store.ErrSyncInProgress

	// errCheckpoint marks a failure to persist a sync record after a
	// successful create. It aborts the pass.
	errCheckpoint = errors.New("failed to persist sync record")
)

// ErrorKind classifies an item failure.
type ErrorKind string

const (
	ErrKindAuthentication ErrorKind = "authentication"
	ErrKindRateLimited    ErrorKind = "rate_limited"
	ErrKindValidation     ErrorKind = "validation"
	ErrKindNetworkTimeout ErrorKind = "network_timeout"
	ErrKindNotFound       ErrorKind = "not_found"
	ErrKindStore          ErrorKind = "store"
	ErrKindCanceled       ErrorKind = "canceled"
	ErrKindUnknown        ErrorKind = "unknown"
)

// KindOf classifies err. Server errors count as network timeouts: both are
// transient failures the client already retried.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, notion.ErrAuthentication):
		return ErrKindAuthentication
	case errors.Is(err, notion.ErrRateLimited):
		return ErrKindRateLimited
	case errors.Is(err, notion.ErrValidation), errors.Is(err, notion.ErrSchema):
		return ErrKindValidation
	case errors.Is(err, notion.ErrNetworkTimeout), errors.Is(err, notion.ErrServer):
		return ErrKindNetworkTimeout
	case errors.Is(err, notion.ErrNotFound):
		return ErrKindNotFound
	case errors.Is(err, errCheckpoint), errors.Is(err, store.ErrCorrupt):
		return ErrKindStore
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrKindCanceled
	}
	return ErrKindUnknown
}

// abortsRun reports whether err must stop the pass.
func abortsRun(ctx context.Context, err error) bool {
	return notion.IsFatal(err) || errors.Is(err, errCheckpoint) || ctx.Err() != nil
}
