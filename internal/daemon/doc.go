// Package daemon keeps the remote workspace current without a manual
// `sy sync`.
//
// The daemon watches the directory holding the local store file with
// fsnotify and runs a reconcile pass shortly after the store changes. A
// ticker also runs a pass at a fixed interval so edits made on the remote
// side of a failed run get retried.
//
//	d, err := daemon.New(engine, st.Path(), &daemon.Config{
//	    Interval:         5 * time.Minute,
//	    DebounceInterval: 2 * time.Second,
//	    OnReport: func(r *sync.Report, err error) {
//	        ledger.RecordRun(ctx, r, err)
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = d.Start(ctx) // blocks until ctx is cancelled
//
// # Debouncing
//
// The store is written with a temp file and a rename, so one save produces
// several filesystem events. Events for the store file are collapsed into a
// single pending change that fires once no new event arrived for
// DebounceInterval.
//
// Writes made by the reconcile pass itself (page ids, sync records) also
// touch the store. After each pass the daemon remembers the file's size and
// modification time and ignores a pending change when the file still
// matches.
//
// # Overlapping runs
//
// A pass that finds another pass in flight (sync.ErrSyncInProgress) is
// logged and dropped. The next event or tick picks up anything it missed.
package daemon
