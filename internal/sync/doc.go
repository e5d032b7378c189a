// Package sync pushes local tasks and events to the remote workspace.
//
// # Reconciliation
//
// Reconcile walks every local item once and compares the item's content
// hash with the hash stored in its sync record:
//
//	no record            -> create the page, write a record
//	record, hash differs -> update the page, refresh the record
//	record, hash equal   -> skip, no network call
//
// A pass therefore costs one request per changed item plus one credential
// check. Running it twice in a row makes no remote calls the second time.
//
// # Failures
//
// Item-level failures (rate limiting or timeouts that outlast the client's
// retries, payloads the API rejects) are recorded in the Report and the pass
// moves on. An authentication failure aborts the pass: the records written
// so far are kept and the partial report is returned with the error.
//
// Only one pass may run at a time per store, whichever Engine starts it; a
// concurrent call returns ErrSyncInProgress immediately. The store is loaded
// and validated before the credential check, so a corrupt store fails the
// pass without any remote call.
//
// # Limitations
//
// Sync is one-way. Pages deleted or edited in the workspace are not
// detected; a deleted page shows up as a not_found failure on the next
// update of its item. Deleting a local item leaves its page in place.
package sync
