package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/notion"
	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/study"
	"github.com/studysync/studysync/internal/types"
	"github.com/studysync/studysync/internal/ui"
)

var reviewCmd = &cobra.Command{
	Use:     "review",
	GroupID: "study",
	Short:   "Compose the weekly review page",
	Long: `Compose a review of one week: completed tasks, open priorities, the
event schedule, completion metrics and reflection prompts.

The week starts on the Monday on or before --week (default today).
With --save the review is stored as a task due on that Monday so the next
sync pushes it. With --push it is stored and written to Notion right away,
updating the page of an earlier push of the same week.`,
	Run: func(cmd *cobra.Command, args []string) {
		now := time.Now()
		week, _ := cmd.Flags().GetString("week")
		save, _ := cmd.Flags().GetBool("save")
		push, _ := cmd.Flags().GetBool("push")

		start := study.WeekStart(now)
		if week != "" {
			d, err := parseDay(week, now)
			if err != nil {
				FatalError("invalid --week: %v", err)
			}
			start = study.WeekStart(d)
		}
		end := start.AddDate(0, 0, 7)

		st := openStore()
		tasks, err := st.ListTasks(store.TaskFilter{IncludeDone: true})
		if err != nil {
			FatalError("%v", err)
		}
		events, err := st.ListEvents(start, end)
		if err != nil {
			FatalError("%v", err)
		}
		page := study.ComposeReview(withoutReviews(tasks), events, start, end)
		task := page.Task()

		var ref *notion.RemoteRef
		switch {
		case push:
			ctx, cancel := signalContext()
			defer cancel()
			r, err := pushReview(ctx, st, newNotionClient(), task)
			if err != nil {
				FatalError("failed to push review: %v", err)
			}
			ref = &r
		case save:
			if err := st.PutTask(task); err != nil {
				FatalError("failed to save review: %v", err)
			}
		}

		if jsonOutput {
			outputJSON(struct {
				*study.WeeklyReviewPage
				ID       string            `json:"id"`
				Title    string            `json:"title"`
				Markdown string            `json:"markdown"`
				Page     *notion.RemoteRef `json:"page,omitempty"`
			}{page, page.ReviewID(), page.Title(), page.Markdown(), ref})
			return
		}

		fmt.Println(ui.RenderHeader(page.Title()))
		fmt.Println()
		fmt.Print(page.Markdown())
		switch {
		case ref != nil:
			fmt.Printf("\n%s Pushed to %s\n", ui.RenderPass("✓"), refLabel(*ref))
		case save:
			fmt.Printf("\n%s Saved as task %s\n", ui.RenderPass("✓"), task.ID)
		}
	},
}

// withoutReviews drops earlier review tasks so a review never counts itself.
func withoutReviews(tasks []*types.Task) []*types.Task {
	out := tasks[:0:0]
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, "weekly-review-") {
			continue
		}
		out = append(out, t)
	}
	return out
}

// pushReview writes the review task to the tasks database. An existing page
// with the same UID is updated in place; the local task and its sync record
// are updated so the next sync skips it.
func pushReview(ctx context.Context, st *store.Store, client *notion.Client, task *types.Task) (notion.RemoteRef, error) {
	dbID := cfg.Notion.TasksDatabaseID
	payload, err := notion.TaskPayload(loadSchemas().Tasks, task)
	if err != nil {
		return notion.RemoteRef{}, err
	}

	var existing *notion.Page
	for p, err := range client.QueryDatabase(dbID, notion.RichTextEquals(notion.PropUID, task.ID)).All(ctx) {
		if err != nil {
			return notion.RemoteRef{}, fmt.Errorf("failed to look up existing review: %w", err)
		}
		if !p.Archived {
			existing = p
			break
		}
	}

	var ref notion.RemoteRef
	if existing != nil {
		ref = existing.Ref()
		if err := client.UpdatePage(ctx, ref, payload); err != nil {
			return ref, err
		}
	} else if ref, err = client.CreatePage(ctx, dbID, payload); err != nil {
		return ref, err
	}

	task.PageID = ref.ID
	err = st.Update(func(tx *store.Txn) error {
		if err := tx.PutTask(task); err != nil {
			return err
		}
		return tx.PutSyncRecord(&types.SyncRecord{
			ItemID:      task.ID,
			Kind:        types.KindTask,
			RemoteID:    ref.ID,
			ContentHash: task.ContentHash(),
			LastSynced:  time.Now(),
		})
	})
	if err != nil {
		return ref, fmt.Errorf("pushed %s but failed to record it: %w", ref.ID, err)
	}
	return ref, nil
}

func refLabel(ref notion.RemoteRef) string {
	if ref.URL != "" {
		return ref.URL
	}
	return "page " + ref.ID
}

func init() {
	reviewCmd.Flags().String("week", "", "any day of the week to review (default today)")
	reviewCmd.Flags().Bool("save", false, "store the review as a task")
	reviewCmd.Flags().Bool("push", false, "store the review and write it to Notion now")

	rootCmd.AddCommand(reviewCmd)
}
