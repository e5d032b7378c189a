package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/config"
	"github.com/studysync/studysync/internal/logging"
	"github.com/studysync/studysync/internal/ui"
)

var (
	configPath string
	quietFlag  bool
	jsonOutput bool

	cfg     *config.Config
	logSink *logging.Sink
)

var rootCmd = &cobra.Command{
	Use:   "sy",
	Short: "sy - tasks, events and study plans synced to Notion",
	Long: `sy keeps a local list of tasks and calendar events and pushes them
one way into two Notion databases. Local data is the source of truth:
sy never reads edits back from Notion.

Study helpers schedule spaced-repetition reviews, place study sessions
before an exam, and compose a weekly review page.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(os.Stdout)

		loaded, err := config.Load(configPath)
		if err != nil {
			FatalError("%v", err)
		}
		if err := loaded.Validate(); err != nil {
			FatalError("invalid configuration: %v", err)
		}
		cfg = loaded

		sink, err := logging.NewSink(cfg.Log, logging.Options{Quiet: quietFlag})
		if err != nil {
			FatalError("failed to open log file: %v", err)
		}
		logSink = sink
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logSink != nil {
			_ = logSink.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/studysync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "only log to the log file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "tasks", Title: "Tasks and events:"},
		&cobra.Group{ID: "sync", Title: "Syncing:"},
		&cobra.Group{ID: "study", Title: "Study helpers:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)
}

// logger returns a component logger on the shared sink.
func logger(component string) *log.Logger {
	if logSink == nil {
		return logging.Discard()
	}
	return logSink.Logger(component)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
