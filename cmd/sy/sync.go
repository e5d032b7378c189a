package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/history"
	"github.com/studysync/studysync/internal/sync"
	"github.com/studysync/studysync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push local tasks and events to Notion",
	Long: `Push local tasks and events to Notion.

Each item is created once, updated when its content changed since the last
push, and skipped otherwise. Failures of single items are reported and do
not stop the pass. An authentication failure stops the pass.

Pages are never deleted and edits made in Notion are not read back.

Use --adopt after restoring or copying the store to link local items to
pages that already carry their id, instead of creating duplicates.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		adopt, _ := cmd.Flags().GetBool("adopt")

		ctx, cancel := signalContext()
		defer cancel()

		st := openStore()
		engine := newEngine(st, newNotionClient(), dryRun)

		var adopted *sync.AdoptReport
		if adopt {
			ar, err := engine.Adopt(ctx)
			if err != nil {
				FatalError("adopt failed: %v", err)
			}
			adopted = ar
			if !jsonOutput {
				fmt.Printf("Adopted %d existing pages (%d scanned, %d items still unlinked)\n",
					ar.Adopted, ar.Scanned, ar.Unlinked)
			}
		}

		report, runErr := engine.Reconcile(ctx)
		if report == nil {
			FatalError("%v", runErr)
		}

		if !dryRun {
			if db := openHistory(); db != nil {
				recordRun(context.WithoutCancel(ctx), db, report, runErr)
				_ = db.Close()
			}
		}

		if jsonOutput {
			out := struct {
				Adopt  *sync.AdoptReport `json:"adopt,omitempty"`
				Report *sync.Report      `json:"report"`
				Error  string            `json:"error,omitempty"`
			}{Adopt: adopted, Report: report}
			if runErr != nil {
				out.Error = runErr.Error()
			}
			outputJSON(out)
		} else {
			printReport(report)
			if runErr != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), runErr)
			}
		}

		if runErr != nil || !report.OK() {
			os.Exit(1)
		}
	},
}

func printReport(r *sync.Report) {
	header := "Sync complete"
	if r.DryRun {
		header = "Dry run complete (nothing was sent)"
	}
	mark := ui.RenderPass("✓")
	if !r.OK() {
		mark = ui.RenderWarn("!")
	}
	fmt.Printf("%s %s in %s\n", mark, header, r.Duration().Round(time.Millisecond))
	fmt.Printf("  created: %d  updated: %d  skipped: %d  failed: %d\n", r.Created, r.Updated, r.Skipped, r.Failed)
	if r.Aborted {
		fmt.Println(ui.RenderFail("  Pass aborted before all items were visited."))
	}
	printFailures(r.Failures)
}

func printFailures(failures []sync.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(ui.RenderHeader("Failures"))
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{
			string(f.Kind), shortID(f.ItemID), ui.Truncate(f.Title, 30), string(f.ErrorKind), ui.Truncate(f.Message, 50),
		})
	}
	ui.Table(os.Stdout, []string{"KIND", "ID", "TITLE", "ERROR", "MESSAGE"}, rows)
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show store counts and recent sync runs",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("runs")
		ctx, cancel := signalContext()
		defer cancel()

		stats, err := openStore().Stats()
		if err != nil {
			FatalError("%v", err)
		}

		var runs []*history.Run
		var last []sync.Failure
		if db := openHistory(); db != nil {
			defer func() { _ = db.Close() }()
			if runs, err = db.RecentRuns(ctx, limit); err != nil {
				FatalError("failed to read history: %v", err)
			}
			if len(runs) > 0 && runs[0].Failed > 0 {
				if last, err = db.Failures(ctx, runs[0].ID); err != nil {
					FatalError("failed to read history: %v", err)
				}
			}
		}

		if jsonOutput {
			outputJSON(struct {
				Store        any            `json:"store"`
				Runs         []*history.Run `json:"runs"`
				LastFailures []sync.Failure `json:"last_failures,omitempty"`
			}{stats, runs, last})
			return
		}

		fmt.Println(ui.RenderHeader("Store"))
		fmt.Printf("  %s\n", cfg.Store.Path)
		fmt.Printf("  tasks: %d (%d done)  events: %d  synced: %d  schedules: %d\n\n",
			stats.Tasks, stats.Done, stats.Events, stats.Synced, stats.Schedules)

		fmt.Println(ui.RenderHeader("Recent runs"))
		if len(runs) == 0 {
			fmt.Println("  No runs recorded.")
			return
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			result := ui.RenderPass("ok")
			switch {
			case r.Error != "":
				result = ui.RenderFail("error")
			case r.Aborted:
				result = ui.RenderFail("aborted")
			case r.Failed > 0:
				result = ui.RenderWarn("partial")
			}
			rows = append(rows, []string{
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				fmt.Sprint(r.Created), fmt.Sprint(r.Updated), fmt.Sprint(r.Skipped), fmt.Sprint(r.Failed),
				result,
			})
		}
		ui.Table(os.Stdout, []string{"STARTED", "CREATED", "UPDATED", "SKIPPED", "FAILED", "RESULT"}, rows)
		printFailures(last)
	},
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "count what would change without calling Notion")
	syncCmd.Flags().Bool("adopt", false, "link unsynced items to existing pages with the same UID first")
	statusCmd.Flags().Int("runs", 10, "number of recent runs to show")

	rootCmd.AddCommand(syncCmd, statusCmd)
}
