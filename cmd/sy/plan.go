package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/study"
	"github.com/studysync/studysync/internal/types"
	"github.com/studysync/studysync/internal/ui"
)

var planCmd = &cobra.Command{
	Use:     "plan <exam title>",
	GroupID: "study",
	Short:   "Place study sessions before an exam",
	Long: fmt.Sprintf(`Place study sessions in free slots before an exam.

Sessions run between %02d:00 and %02d:00, starting the day before the exam and
walking back towards today. Stored events block the hours they cover.
The sessions are stored as events unless --dry-run is given.

Examples:
  sy plan "Organic Chem final" --exam 2026-03-20 --hours 12
  sy plan "Anatomy quiz" --exam "next friday" --hours 4 --session 1 --dry-run`, study.DayStartHour, study.DayEndHour),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		now := time.Now()
		examStr, _ := cmd.Flags().GetString("exam")
		hours, _ := cmd.Flags().GetInt("hours")
		session, _ := cmd.Flags().GetInt("session")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if examStr == "" {
			FatalError("--exam is required")
		}
		exam, err := parseDay(examStr, now)
		if err != nil {
			FatalError("invalid --exam: %v", err)
		}
		if session == 0 {
			session = cfg.Study.SessionHours
		}

		st := openStore()
		busy, err := st.ListEvents(types.TruncateDay(now), exam)
		if err != nil {
			FatalError("%v", err)
		}
		plan, err := study.PlanStudySessions(study.PlanRequest{
			ExamTitle:    args[0],
			ExamDate:     exam,
			TotalHours:   hours,
			SessionHours: session,
			Today:        now,
		}, busy)
		if err != nil {
			FatalError("%v", err)
		}

		if !dryRun && len(plan.Sessions) > 0 {
			err := st.Update(func(tx *store.Txn) error {
				for _, e := range plan.Sessions {
					if err := tx.PutEvent(e); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				FatalError("failed to save sessions: %v", err)
			}
		}

		if jsonOutput {
			outputJSON(plan)
			return
		}
		if len(plan.Sessions) == 0 {
			fmt.Println(ui.RenderWarn("No free slots before the exam."))
			os.Exit(1)
		}
		rows := make([][]string, 0, len(plan.Sessions))
		for _, e := range plan.Sessions {
			rows = append(rows, []string{formatSpan(e), e.ID})
		}
		ui.Table(os.Stdout, []string{"WHEN", "ID"}, rows)
		if !plan.Complete() {
			fmt.Println(ui.RenderWarn(fmt.Sprintf("Only %d of %d sessions fit before the exam.", len(plan.Sessions), plan.Requested)))
		}
		if dryRun {
			fmt.Println(ui.RenderMuted("Dry run: nothing was stored."))
		} else {
			fmt.Printf("%s Stored %d sessions\n", ui.RenderPass("✓"), len(plan.Sessions))
		}
	},
}

func init() {
	planCmd.Flags().String("exam", "", "exam date (required)")
	planCmd.Flags().Int("hours", 10, "total hours to study")
	planCmd.Flags().Int("session", 0, "hours per session (default from config)")
	planCmd.Flags().Bool("dry-run", false, "show the plan without storing it")

	rootCmd.AddCommand(planCmd)
}
