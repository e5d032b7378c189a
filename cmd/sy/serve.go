package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/daemon"
	"github.com/studysync/studysync/internal/dashboard"
	"github.com/studysync/studysync/internal/history"
	"github.com/studysync/studysync/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "advanced",
	Short:   "Run the dashboard and the auto-sync daemon",
	Long: `Run the HTTP dashboard and, unless --no-daemon is given, the auto-sync
daemon. The daemon syncs on start, after the store file changes, and every
sync.interval. Sync reports are streamed to WebSocket clients on /ws.

When dashboard.jwt_secret is set every endpoint except /health needs a
bearer token; --token prints one and exits.`,
	Run: func(cmd *cobra.Command, args []string) {
		printToken, _ := cmd.Flags().GetDuration("token")
		noDaemon, _ := cmd.Flags().GetBool("no-daemon")
		port, _ := cmd.Flags().GetInt("port")

		if cmd.Flags().Changed("token") {
			if cfg.Dashboard.JWTSecret == "" {
				FatalError("dashboard.jwt_secret is not set")
			}
			tok, err := dashboard.IssueToken(cfg.Dashboard.JWTSecret, "cli", printToken)
			if err != nil {
				FatalError("%v", err)
			}
			fmt.Println(tok)
			return
		}

		ctx, cancel := signalContext()
		defer cancel()

		st := openStore()
		engine := newEngine(st, newNotionClient(), false)
		db := openHistory()
		if db != nil {
			defer func() { _ = db.Close() }()
		}

		if !cmd.Flags().Changed("port") {
			port = cfg.Dashboard.Port
		}
		syncer := &recordingSyncer{Engine: engine, db: db}
		server, err := dashboard.NewServer(st, syncer, &dashboard.Config{
			Host:      cfg.Dashboard.Host,
			Port:      port,
			JWTSecret: cfg.Dashboard.JWTSecret,
			Logger:    logger("dashboard"),
		})
		if err != nil {
			FatalError("%v", err)
		}
		if err := server.Start(); err != nil {
			FatalError("failed to start dashboard: %v", err)
		}
		fmt.Printf("Dashboard listening on http://%s\n", server.GetAddr())

		if noDaemon {
			<-ctx.Done()
		} else {
			d, err := daemon.New(syncer, st.Path(), &daemon.Config{
				Interval:         cfg.Sync.Interval,
				DebounceInterval: cfg.Sync.Debounce,
				SyncOnStart:      true,
				OnReport:         server.PublishReport,
				Logger:           logger("daemon"),
			})
			if err != nil {
				FatalError("%v", err)
			}
			if err := d.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger("daemon").Printf("Daemon stopped: %v", err)
			}
		}

		if err := server.Stop(); err != nil {
			logger("dashboard").Printf("Shutdown: %v", err)
		}
		fmt.Println("Stopped.")
	},
}

// recordingSyncer writes every pass to the run ledger, whether the daemon
// or the dashboard started it.
type recordingSyncer struct {
	*sync.Engine
	db *history.DB
}

func (r *recordingSyncer) Reconcile(ctx context.Context) (*sync.Report, error) {
	report, err := r.Engine.Reconcile(ctx)
	// Recording outlives ctx so the last pass is kept on shutdown.
	recordRun(context.WithoutCancel(ctx), r.db, report, err)
	return report, err
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (default dashboard.port)")
	serveCmd.Flags().Bool("no-daemon", false, "serve the dashboard without auto-sync")
	serveCmd.Flags().Duration("token", 24*time.Hour, "print a bearer token valid for this long and exit")

	rootCmd.AddCommand(serveCmd)
}
