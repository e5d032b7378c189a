// Package store persists tasks, events, sync records and repetition
// schedules in a single JSON document on local disk.
//
// # File Format
//
//	{
//	  "version": 1,
//	  "tasks":        {"<id>": {...}},
//	  "events":       {"<id>": {...}},
//	  "sync_records": {"task:<id>": {...}},
//	  "schedules":    {"<id>": {...}}
//	}
//
// # Durability
//
// Every save writes the whole document to a temporary file in the same
// directory, fsyncs it and renames it over the original, so a crash leaves
// either the old or the new document and never a torn one.
//
// # Concurrency
//
// One mutex serializes every operation on a Store. Begin hands out an
// exclusive transaction that keeps the mutex until Commit or Rollback; the
// sync engine holds one for an entire reconcile pass. Changes made by other
// processes are picked up when the file's modification time or size moves.
//
// # Errors
//
// A document that cannot be parsed or fails validation yields ErrCorrupt
// from Open. Lookups of unknown ids yield ErrNotFound.
package store
