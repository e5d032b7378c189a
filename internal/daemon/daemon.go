package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	syncengine "github.com/studysync/studysync/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// Interval between unconditional passes. Zero disables the ticker.
	Interval time.Duration

	// DebounceInterval is how long the store must stay quiet before a
	// change triggers a pass.
	DebounceInterval time.Duration

	// SyncOnStart runs a pass before watching begins.
	SyncOnStart bool

	// OnReport is called after every pass that ran, including failed ones.
	OnReport func(report *syncengine.Report, err error)

	// Logger for daemon activity
	Logger *log.Logger
}

// MinDebounceInterval is the shortest debounce New accepts; shorter
// positive values are raised to it.
const MinDebounceInterval = 2 * time.Millisecond

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:         5 * time.Minute,
		DebounceInterval: 2 * time.Second,
		SyncOnStart:      true,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// Daemon runs reconcile passes when the store changes.
type Daemon struct {
	reconciler syncengine.Reconciler
	storePath  string
	config     *Config

	watcher *fsnotify.Watcher

	mu        sync.Mutex
	pendingAt time.Time // zero when nothing is queued
	lastSeen  fileStamp
	runs      int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	stop   sync.Once
}

// New creates a daemon for the store file at storePath.
//
// Use Start() to begin watching and syncing.
func New(r syncengine.Reconciler, storePath string, config *Config) (*Daemon, error) {
	if r == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}
	if storePath == "" {
		return nil, fmt.Errorf("storePath cannot be empty")
	}
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	c := *config
	switch {
	case c.DebounceInterval <= 0:
		c.DebounceInterval = defaults.DebounceInterval
	case c.DebounceInterval < MinDebounceInterval:
		c.DebounceInterval = MinDebounceInterval
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}

	abs, err := filepath.Abs(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		reconciler: r,
		storePath:  abs,
		config:     &c,
		watcher:    watcher,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start watches the store and runs passes until ctx is cancelled or Stop
// is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	dir := filepath.Dir(d.storePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	if d.config.SyncOnStart {
		d.RunOnce(ctx)
	} else {
		d.rememberStamp()
	}

	// Watch the directory rather than the file: the store is replaced by
	// rename on every save.
	if err := d.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	d.config.Logger.Printf("Watching: %s", d.storePath)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChanges()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. It is safe to call more than once.
func (d *Daemon) Stop() error {
	d.stop.Do(func() {
		d.config.Logger.Println("Stopping daemon")
		d.cancel()
		if err := d.watcher.Close(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}
		d.wg.Wait()
		d.config.Logger.Println("Daemon stopped")
	})
	return nil
}

// Runs returns the number of passes that ran to completion or failure.
// Passes dropped because another was in flight are not counted.
func (d *Daemon) Runs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runs
}

// RunOnce runs a single reconcile pass and reports it.
func (d *Daemon) RunOnce(ctx context.Context) {
	report, err := d.reconciler.Reconcile(ctx)
	if errors.Is(err, syncengine.ErrSyncInProgress) {
		d.config.Logger.Println("Sync already in progress, skipping")
		return
	}

	d.rememberStamp()
	d.mu.Lock()
	d.runs++
	d.mu.Unlock()

	switch {
	case err != nil:
		d.config.Logger.Printf("Sync failed: %v", err)
	case report != nil:
		d.config.Logger.Printf("Sync complete: %s", report.Summary())
	}
	if d.config.OnReport != nil && (report != nil || err != nil) {
		d.config.OnReport(report, err)
	}
}

// watchFileEvents queues a change for every event on the store file.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != d.storePath {
				continue
			}
			d.queueChange()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (d *Daemon) queueChange() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pendingAt = time.Now()
}

// processChanges fires debounced changes and the periodic ticker.
func (d *Daemon) processChanges() {
	defer d.wg.Done()

	debounce := time.NewTicker(max(d.config.DebounceInterval/2, time.Millisecond))
	defer debounce.Stop()

	var tick <-chan time.Time
	if d.config.Interval > 0 {
		interval := time.NewTicker(d.config.Interval)
		defer interval.Stop()
		tick = interval.C
	}

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-debounce.C:
			if d.takePending() {
				d.RunOnce(d.ctx)
			}

		case <-tick:
			d.RunOnce(d.ctx)
		}
	}
}

// takePending reports whether a queued change is ready to run. A change
// whose file still matches the stamp taken after the last pass came from
// that pass and is dropped.
func (d *Daemon) takePending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pendingAt.IsZero() || time.Since(d.pendingAt) < d.config.DebounceInterval {
		return false
	}
	d.pendingAt = time.Time{}

	stamp, ok := statFile(d.storePath)
	if ok && stamp.size == d.lastSeen.size && stamp.modTime.Equal(d.lastSeen.modTime) {
		return false
	}
	return true
}

func (d *Daemon) rememberStamp() {
	stamp, _ := statFile(d.storePath)
	d.mu.Lock()
	d.lastSeen = stamp
	d.mu.Unlock()
}

func statFile(path string) (fileStamp, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, false
	}
	return fileStamp{size: info.Size(), modTime: info.ModTime()}, true
}
