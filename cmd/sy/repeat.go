package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/study"
	"github.com/studysync/studysync/internal/types"
	"github.com/studysync/studysync/internal/ui"
)

var repeatCmd = &cobra.Command{
	Use:     "repeat",
	GroupID: "study",
	Short:   "Spaced repetition schedules",
	Long: `Spaced repetition schedules.

A schedule anchors a task at a study day and plans reviews after a fixed
list of day offsets (default 1, 3, 7, 14 and 30). Each planned review is
stored as its own task so it syncs like any other.`,
}

var repeatAddCmd = &cobra.Command{
	Use:   "add <task-id>",
	Short: "Start a schedule for a task",
	Long: `Start a schedule for a task and store one review task per offset.

Examples:
  sy repeat add 3f2a
  sy repeat add 3f2a --anchor 2026-03-02 --offsets 1,2,4,8`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		now := time.Now()
		st := openStore()
		source, err := st.FindTask(args[0])
		if err != nil {
			FatalError("%v", err)
		}

		offsets := cfg.Study.Intervals
		if s, _ := cmd.Flags().GetString("offsets"); s != "" {
			if offsets, err = study.ParseOffsets(s); err != nil {
				FatalError("invalid --offsets: %v", err)
			}
		}
		anchor := now
		if s, _ := cmd.Flags().GetString("anchor"); s != "" {
			if anchor, err = parseDay(s, now); err != nil {
				FatalError("invalid --anchor: %v", err)
			}
		}

		sched, err := study.NewSchedule(source.ID, anchor, offsets)
		if err != nil {
			FatalError("%v", err)
		}
		reviews := study.ReviewTasks(source, sched)
		err = st.Update(func(tx *store.Txn) error {
			if err := tx.PutSchedule(sched); err != nil {
				return err
			}
			for _, t := range reviews {
				if err := tx.PutTask(t); err != nil {
					return fmt.Errorf("review task %s: %w", t.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			FatalError("failed to save schedule: %v", err)
		}

		if jsonOutput {
			outputJSON(struct {
				Schedule *types.RepetitionSchedule `json:"schedule"`
				Reviews  []*types.Task             `json:"reviews"`
			}{sched, reviews})
			return
		}
		fmt.Printf("%s Schedule %s for %q with %d reviews:\n", ui.RenderPass("✓"), shortID(sched.ID), source.Title, len(reviews))
		for _, t := range reviews {
			fmt.Printf("  %s  %s\n", t.Due.Format("Mon Jan 02"), t.ID)
		}
	},
}

var repeatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules and their next review",
	Run: func(cmd *cobra.Command, args []string) {
		st := openStore()
		scheds, err := st.ListSchedules()
		if err != nil {
			FatalError("%v", err)
		}
		dueOnly, _ := cmd.Flags().GetBool("due")
		today := time.Now()

		type row struct {
			Schedule *types.RepetitionSchedule `json:"schedule"`
			Next     *time.Time                `json:"next,omitempty"`
			Due      bool                      `json:"due"`
			Source   string                    `json:"source_title,omitempty"`
		}
		var out []row
		for _, s := range scheds {
			due := study.IsDue(s, today)
			if dueOnly && !due {
				continue
			}
			r := row{Schedule: s, Due: due}
			if next, ok := study.NextReview(s); ok {
				r.Next = &next
			}
			if src, err := st.GetTask(s.SourceID); err == nil {
				r.Source = src.Title
			}
			out = append(out, r)
		}

		if jsonOutput {
			outputJSON(out)
			return
		}
		if len(out) == 0 {
			fmt.Println("No schedules.")
			return
		}
		rows := make([][]string, 0, len(out))
		for _, r := range out {
			next := ui.RenderMuted("done")
			if r.Next != nil {
				next = r.Next.Format("Mon Jan 02")
				if r.Due {
					next = ui.RenderWarn(next + " (due)")
				}
			}
			source := r.Source
			if source == "" {
				source = ui.RenderMuted(r.Schedule.SourceID + " (deleted)")
			}
			rows = append(rows, []string{
				shortID(r.Schedule.ID), ui.Truncate(source, 36), next,
				fmt.Sprintf("%d/%d", r.Schedule.Cursor, len(r.Schedule.Offsets)),
			})
		}
		ui.Table(os.Stdout, []string{"ID", "TASK", "NEXT", "DONE"}, rows)
	},
}

var repeatNextCmd = &cobra.Command{
	Use:   "next <schedule-id>",
	Short: "Show the next review date of a schedule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sched := findSchedule(openStore(), args[0])
		next, ok := study.NextReview(sched)
		if jsonOutput {
			out := struct {
				ScheduleID string     `json:"schedule_id"`
				Next       *time.Time `json:"next"`
				Remaining  []string   `json:"remaining"`
			}{ScheduleID: sched.ID, Remaining: []string{}}
			if ok {
				out.Next = &next
			}
			for _, d := range study.Remaining(sched) {
				out.Remaining = append(out.Remaining, d.Format(types.DateLayout))
			}
			outputJSON(out)
			return
		}
		if !ok {
			fmt.Println("All reviews are confirmed.")
			return
		}
		fmt.Printf("Next review: %s (%d of %d)\n", next.Format("Monday, Jan 02 2006"), sched.Cursor+1, len(sched.Offsets))
		if study.IsDue(sched, time.Now()) {
			fmt.Println(ui.RenderWarn("Due now."))
		}
	},
}

var repeatConfirmCmd = &cobra.Command{
	Use:   "confirm <schedule-id>",
	Short: "Confirm the current review and move to the next",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st := openStore()
		sched := findSchedule(st, args[0])
		if sched.Exhausted() {
			FatalError("schedule %s: %v", shortID(sched.ID), study.ErrScheduleExhausted)
		}
		confirmed := sched.Offsets[sched.Cursor]
		if err := study.Advance(sched); err != nil {
			FatalError("%v", err)
		}

		err := st.Update(func(tx *store.Txn) error {
			if err := tx.PutSchedule(sched); err != nil {
				return err
			}
			if t, ok := tx.Task(study.ReviewTaskID(sched.SourceID, confirmed)); ok && !t.IsDone() {
				t.Status = types.StatusDone
				return tx.PutTask(t)
			}
			return nil
		})
		if err != nil {
			FatalError("failed to save schedule: %v", err)
		}

		if jsonOutput {
			outputJSON(sched)
			return
		}
		fmt.Printf("%s Confirmed the %d-day review\n", ui.RenderPass("✓"), confirmed)
		if next, ok := study.NextReview(sched); ok {
			fmt.Printf("  Next review: %s\n", next.Format("Monday, Jan 02 2006"))
		} else {
			fmt.Println("  Schedule complete.")
		}
	},
}

// findSchedule resolves a schedule id or unique prefix, or exits.
func findSchedule(st *store.Store, ref string) *types.RepetitionSchedule {
	if s, err := st.GetSchedule(ref); err == nil {
		return s
	} else if !errors.Is(err, store.ErrNotFound) {
		FatalError("%v", err)
	}
	all, err := st.ListSchedules()
	if err != nil {
		FatalError("%v", err)
	}
	var match *types.RepetitionSchedule
	for _, s := range all {
		if strings.HasPrefix(s.ID, ref) {
			if match != nil {
				FatalError("schedule prefix %q is ambiguous", ref)
			}
			match = s
		}
	}
	if match == nil {
		FatalError("schedule %s not found", ref)
	}
	return match
}

func init() {
	repeatAddCmd.Flags().String("offsets", "", "comma separated day offsets (default from config)")
	repeatAddCmd.Flags().String("anchor", "", "study day the offsets count from (default today)")
	repeatListCmd.Flags().Bool("due", false, "only schedules with a review due")

	repeatCmd.AddCommand(repeatAddCmd, repeatListCmd, repeatNextCmd, repeatConfirmCmd)
	rootCmd.AddCommand(repeatCmd)
}
