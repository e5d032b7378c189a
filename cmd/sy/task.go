package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/types"
	"github.com/studysync/studysync/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: "tasks",
	Short:   "Manage local tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task",
	Long: `Add a task to the local store.

Without a title and on a terminal, an interactive form asks for the fields.
Due dates accept YYYY-MM-DD or phrases such as "tomorrow" or "next friday".

Examples:
  sy task add "Pharmacology quiz" --due 2026-03-05 --priority high
  sy task add "Lab write-up" --due "in 3 days" --category Chem --hours 2
  sy task add`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		now := time.Now()
		task := &types.Task{ID: newID()}

		due, _ := cmd.Flags().GetString("due")
		priority, _ := cmd.Flags().GetString("priority")
		task.Category, _ = cmd.Flags().GetString("category")
		task.EstimatedHours, _ = cmd.Flags().GetFloat64("hours")
		task.Notes, _ = cmd.Flags().GetString("notes")

		if len(args) == 1 {
			task.Title = args[0]
		} else if ui.IsTerminal(os.Stdin) && !jsonOutput {
			if err := runTaskForm(task, &due, &priority); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Fprintln(os.Stderr, "Aborted.")
					os.Exit(1)
				}
				FatalError("%v", err)
			}
		} else {
			FatalError("a title is required")
		}

		if due != "" {
			d, err := parseDay(due, now)
			if err != nil {
				FatalError("invalid --due: %v", err)
			}
			task.Due = d
		}
		p, err := types.ParsePriority(priority)
		if err != nil {
			FatalError("%v", err)
		}
		task.Priority = p

		st := openStore()
		if err := st.PutTask(task); err != nil {
			FatalError("failed to add task: %v", err)
		}
		saved, _ := st.GetTask(task.ID)
		if jsonOutput {
			outputJSON(saved)
			return
		}
		fmt.Printf("%s Added task %s: %s\n", ui.RenderPass("✓"), shortID(task.ID), task.Title)
	},
}

func runTaskForm(task *types.Task, due, priority *string) error {
	if *priority == "" {
		*priority = types.PriorityMedium.String()
	}
	hours := ""
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&task.Title).Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("title is required")
				}
				return nil
			}),
			huh.NewInput().Title("Due").Placeholder("YYYY-MM-DD or \"next friday\"").Value(due).Validate(func(s string) error {
				if s == "" {
					return nil
				}
				_, err := parseDay(s, time.Now())
				return err
			}),
			huh.NewSelect[string]().Title("Priority").
				Options(huh.NewOptions("low", "medium", "high", "urgent")...).
				Value(priority),
			huh.NewInput().Title("Category").Value(&task.Category),
			huh.NewInput().Title("Estimated hours").Value(&hours).Validate(func(s string) error {
				if s == "" {
					return nil
				}
				_, err := strconv.ParseFloat(s, 64)
				return err
			}),
			huh.NewText().Title("Notes").Value(&task.Notes),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if hours != "" {
		task.EstimatedHours, _ = strconv.ParseFloat(hours, 64)
	}
	return nil
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks ordered by due date",
	Run: func(cmd *cobra.Command, args []string) {
		filter := store.TaskFilter{}
		filter.IncludeDone, _ = cmd.Flags().GetBool("all")
		filter.Category, _ = cmd.Flags().GetString("category")
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			status, err := types.ParseStatus(s)
			if err != nil {
				FatalError("%v", err)
			}
			filter.Status = &status
		}
		if before, _ := cmd.Flags().GetString("due-before"); before != "" {
			d, err := parseDay(before, time.Now())
			if err != nil {
				FatalError("invalid --due-before: %v", err)
			}
			filter.DueBefore = d
		}

		tasks, err := openStore().ListTasks(filter)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(tasks)
			return
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return
		}

		today := types.TruncateDay(time.Now())
		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			due := ui.RenderMuted("-")
			if t.HasDue() {
				due = t.Due.Format("Mon Jan 02")
				if t.Due.Before(today) && !t.IsDone() {
					due = ui.RenderFail(due)
				}
			}
			synced := ""
			if t.PageID != "" {
				synced = ui.RenderMuted("●")
			}
			rows = append(rows, []string{
				shortID(t.ID), ui.Truncate(t.Title, 40), due,
				ui.RenderPriority(t.Priority), ui.RenderStatus(t.Status), t.Category, synced,
			})
		}
		ui.Table(os.Stdout, []string{"ID", "TITLE", "DUE", "PRIORITY", "STATUS", "CATEGORY", ""}, rows)
	},
}

var taskSetCmd = &cobra.Command{
	Use:   "set <id> [flags]",
	Short: "Change fields of a task",
	Long: `Change fields of a task. Only the flags given are changed.

Examples:
  sy task set 3f2a --status in-progress
  sy task set 3f2a --due 2026-03-12 --priority urgent`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st := openStore()
		task, err := st.FindTask(args[0])
		if err != nil {
			FatalError("%v", err)
		}

		flags := cmd.Flags()
		if flags.Changed("title") {
			task.Title, _ = flags.GetString("title")
		}
		if flags.Changed("category") {
			task.Category, _ = flags.GetString("category")
		}
		if flags.Changed("notes") {
			task.Notes, _ = flags.GetString("notes")
		}
		if flags.Changed("hours") {
			task.EstimatedHours, _ = flags.GetFloat64("hours")
		}
		if flags.Changed("due") {
			due, _ := flags.GetString("due")
			if due == "" || due == "none" {
				task.Due = time.Time{}
			} else if task.Due, err = parseDay(due, time.Now()); err != nil {
				FatalError("invalid --due: %v", err)
			}
		}
		if flags.Changed("priority") {
			p, _ := flags.GetString("priority")
			if task.Priority, err = types.ParsePriority(p); err != nil {
				FatalError("%v", err)
			}
		}
		if flags.Changed("status") {
			s, _ := flags.GetString("status")
			if task.Status, err = types.ParseStatus(s); err != nil {
				FatalError("%v", err)
			}
		}

		if err := st.PutTask(task); err != nil {
			FatalError("failed to update task: %v", err)
		}
		if jsonOutput {
			outputJSON(task)
			return
		}
		fmt.Printf("%s Updated %s: %s\n", ui.RenderPass("✓"), shortID(task.ID), task.Title)
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>...",
	Short: "Mark tasks as done",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st := openStore()
		for _, ref := range args {
			task, err := st.FindTask(ref)
			if err != nil {
				FatalError("%v", err)
			}
			task.Status = types.StatusDone
			if err := st.PutTask(task); err != nil {
				FatalError("failed to update %s: %v", task.ID, err)
			}
			if !jsonOutput {
				fmt.Printf("%s Done: %s\n", ui.RenderPass("✓"), task.Title)
			}
		}
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task locally",
	Long: `Delete a task from the local store.

The Notion page, if any, is left in place: sync is one-way and never
deletes remote pages.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st := openStore()
		task, err := st.FindTask(args[0])
		if err != nil {
			FatalError("%v", err)
		}
		if err := st.DeleteTask(task.ID); err != nil {
			FatalError("%v", err)
		}
		if !jsonOutput {
			fmt.Printf("%s Deleted %s: %s\n", ui.RenderPass("✓"), shortID(task.ID), task.Title)
			if task.PageID != "" {
				fmt.Println(ui.RenderMuted("  The Notion page was not removed."))
			}
		}
	},
}

func newID() string {
	return uuid.NewString()
}

// shortID shortens generated ids for display. FindTask accepts the prefix.
func shortID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id[:8]
	}
	return id
}

func init() {
	addTaskFieldFlags := func(c *cobra.Command) {
		c.Flags().String("due", "", "due date (YYYY-MM-DD or phrase)")
		c.Flags().StringP("priority", "p", "", "low, medium, high or urgent")
		c.Flags().StringP("category", "c", "", "category")
		c.Flags().Float64("hours", 0, "estimated hours")
		c.Flags().String("notes", "", "notes")
	}
	addTaskFieldFlags(taskAddCmd)
	addTaskFieldFlags(taskSetCmd)
	taskSetCmd.Flags().String("title", "", "new title")
	taskSetCmd.Flags().StringP("status", "s", "", "todo, in-progress, review or done")

	taskListCmd.Flags().BoolP("all", "a", false, "include done tasks")
	taskListCmd.Flags().StringP("status", "s", "", "only this status")
	taskListCmd.Flags().StringP("category", "c", "", "only this category")
	taskListCmd.Flags().String("due-before", "", "only tasks due before this date")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskSetCmd, taskDoneCmd, taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}
