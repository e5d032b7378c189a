package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/studysync/studysync/internal/history"
	"github.com/studysync/studysync/internal/notion"
	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/sync"
)

// FatalError prints an error and exits 1.
func FatalError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// outputJSON prints v as indented JSON.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		FatalError("failed to encode JSON: %v", err)
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openStore() *store.Store {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		FatalError("failed to open store %s: %v", cfg.Store.Path, err)
	}
	return st
}

func loadSchemas() *notion.Schemas {
	if cfg.Notion.SchemaFile == "" {
		return notion.DefaultSchemas()
	}
	schemas, err := notion.LoadSchemas(cfg.Notion.SchemaFile)
	if err != nil {
		FatalError("failed to load schema file: %v", err)
	}
	return schemas
}

func newNotionClient() *notion.Client {
	if err := cfg.RequireNotion(); err != nil {
		FatalError("%v", err)
	}
	return newTokenClient()
}

// newTokenClient needs only the token; setup uses it before any database
// exists.
func newTokenClient() *notion.Client {
	client, err := notion.New(&notion.Config{
		Token:             cfg.Notion.Token,
		Version:           cfg.Notion.Version,
		BaseURL:           cfg.Notion.BaseURL,
		Timeout:           cfg.Notion.Timeout,
		MaxRetries:        cfg.Notion.MaxRetries,
		RequestsPerSecond: cfg.Notion.RequestsPerSecond,
		Logger:            logger("notion"),
	})
	if err != nil {
		FatalError("failed to create Notion client: %v", err)
	}
	return client
}

func newEngine(st *store.Store, client *notion.Client, dryRun bool) *sync.Engine {
	engine, err := sync.New(st, client, &sync.Config{
		TaskDatabaseID:  cfg.Notion.TasksDatabaseID,
		EventDatabaseID: cfg.Notion.EventsDatabaseID,
		Schemas:         loadSchemas(),
		DryRun:          dryRun,
		Logger:          logger("sync"),
	})
	if err != nil {
		FatalError("failed to create sync engine: %v", err)
	}
	return engine
}

// openHistory opens the run ledger. Failures are logged and yield nil: a
// broken ledger must not block syncing.
func openHistory() *history.DB {
	db, err := history.Open(cfg.History.Path)
	if err != nil {
		logger("history").Printf("Warning: run history unavailable: %v", err)
		return nil
	}
	return db
}

// recordRun stores a pass in the ledger and prunes old runs.
func recordRun(ctx context.Context, db *history.DB, report *sync.Report, runErr error) {
	if db == nil || report == nil {
		return
	}
	l := logger("history")
	if _, err := db.RecordRun(ctx, report, runErr); err != nil {
		l.Printf("Warning: failed to record run: %v", err)
		return
	}
	if cfg.History.Keep > 0 {
		if _, err := db.Prune(ctx, cfg.History.Keep); err != nil {
			l.Printf("Warning: failed to prune history: %v", err)
		}
	}
}
