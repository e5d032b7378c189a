package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/importer"
	"github.com/studysync/studysync/internal/ui"
)

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "tasks",
	Short:   "Import tasks and events from JSON, TOML or YAML",
	Long: `Import tasks and events from a file.

The format follows the extension (.json, .toml, .yaml or .yml). Records get
ids derived from their content, so importing the same file twice changes
nothing. Invalid records are reported and skipped.

A JSON file is a list of records with "type" set to "task" or "event":

  [
    {"type": "task", "task": "Read chapter 4", "due_date": "2026-03-05", "priority": "high"},
    {"type": "event", "event": "Lab", "date": "2026-03-04", "start": "2:00 PM", "end": "4:00 PM"}
  ]

TOML files use [[task]] and [[event]] tables with the same keys.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		recs, err := importer.ReadFile(args[0])
		if err != nil {
			FatalError("%v", err)
		}
		items := importer.Convert(recs, time.Local)
		res, err := importer.Apply(openStore(), items)
		if err != nil {
			FatalError("import failed: %v", err)
		}

		if jsonOutput {
			errs := make([]string, 0, len(items.Errors))
			for _, e := range items.Errors {
				errs = append(errs, e.Error())
			}
			outputJSON(struct {
				Result *importer.Result `json:"result"`
				Errors []string         `json:"errors"`
			}{res, errs})
			return
		}
		for _, e := range items.Errors {
			fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderWarn("skipped:"), e)
		}
		fmt.Printf("%s Imported %s: %d created, %d updated, %d unchanged, %d invalid\n",
			ui.RenderPass("✓"), args[0], res.Created, res.Updated, res.Unchanged, res.Invalid)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
