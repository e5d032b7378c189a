package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/types"
	"github.com/studysync/studysync/internal/ui"
)

var eventCmd = &cobra.Command{
	Use:     "event",
	GroupID: "tasks",
	Short:   "Manage local calendar events",
}

var eventAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add an event",
	Long: `Add an event to the local store.

--start takes a date, a date and time, or a phrase. A start without a time
makes an all-day event. The end defaults to one hour after the start.

Examples:
  sy event add "Anatomy lecture" --start "2026-03-04 10:00" --duration 90m --location "Hall B"
  sy event add "Clinic" --start "tomorrow 14:00" --end "tomorrow 17:00" --type Shift
  sy event add "Conference" --start 2026-04-02`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		now := time.Now()
		startStr, _ := cmd.Flags().GetString("start")
		endStr, _ := cmd.Flags().GetString("end")
		duration, _ := cmd.Flags().GetDuration("duration")
		if startStr == "" {
			FatalError("--start is required")
		}

		start, hasClock, err := parseWhen(startStr, now)
		if err != nil {
			FatalError("invalid --start: %v", err)
		}
		event := &types.Event{ID: newID(), Title: args[0], Start: start}
		event.Location, _ = cmd.Flags().GetString("location")
		event.EventType, _ = cmd.Flags().GetString("type")
		event.Contact, _ = cmd.Flags().GetString("contact")

		switch {
		case !hasClock:
			event.AllDay = true
			event.Start = types.TruncateDay(start)
			event.End = event.Start.AddDate(0, 0, 1)
		case endStr != "":
			end, _, err := parseWhen(endStr, now)
			if err != nil {
				FatalError("invalid --end: %v", err)
			}
			event.End = end
		case duration > 0:
			event.End = start.Add(duration)
		default:
			event.End = start.Add(time.Hour)
		}

		st := openStore()
		if err := st.PutEvent(event); err != nil {
			FatalError("failed to add event: %v", err)
		}
		if jsonOutput {
			saved, _ := st.GetEvent(event.ID)
			outputJSON(saved)
			return
		}
		fmt.Printf("%s Added event %s: %s (%s)\n", ui.RenderPass("✓"), shortID(event.ID), event.Title, formatSpan(event))
	},
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events in a date range",
	Run: func(cmd *cobra.Command, args []string) {
		now := time.Now()
		from := types.TruncateDay(now)
		days, _ := cmd.Flags().GetInt("days")
		if s, _ := cmd.Flags().GetString("from"); s != "" {
			d, err := parseDay(s, now)
			if err != nil {
				FatalError("invalid --from: %v", err)
			}
			from = d
		}
		to := from.AddDate(0, 0, days)

		events, err := openStore().ListEvents(from, to)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(events)
			return
		}
		if len(events) == 0 {
			fmt.Printf("No events between %s and %s.\n", from.Format(types.DateLayout), to.Format(types.DateLayout))
			return
		}
		rows := make([][]string, 0, len(events))
		for _, e := range events {
			rows = append(rows, []string{
				shortID(e.ID), ui.Truncate(e.Title, 36), formatSpan(e), e.EventType, ui.Truncate(e.Location, 24),
			})
		}
		ui.Table(os.Stdout, []string{"ID", "TITLE", "WHEN", "TYPE", "LOCATION"}, rows)
	},
}

var eventRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an event locally",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st := openStore()
		event, err := findEvent(st, args[0])
		if err != nil {
			FatalError("%v", err)
		}
		if err := st.DeleteEvent(event.ID); err != nil {
			FatalError("%v", err)
		}
		if !jsonOutput {
			fmt.Printf("%s Deleted %s: %s\n", ui.RenderPass("✓"), shortID(event.ID), event.Title)
		}
	},
}

// findEvent resolves an id or a unique prefix among all events.
func findEvent(st *store.Store, ref string) (*types.Event, error) {
	if e, err := st.GetEvent(ref); err == nil {
		return e, nil
	}
	all, err := st.ListEvents(time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	var match *types.Event
	for _, e := range all {
		if strings.HasPrefix(e.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("event prefix %q is ambiguous", ref)
			}
			match = e
		}
	}
	if match == nil {
		return nil, fmt.Errorf("event %s: %w", ref, store.ErrNotFound)
	}
	return match, nil
}

func formatSpan(e *types.Event) string {
	if e.AllDay {
		return e.Start.Format("Mon Jan 02") + " all day"
	}
	if types.TruncateDay(e.Start).Equal(types.TruncateDay(e.End)) {
		return e.Start.Format("Mon Jan 02 15:04") + "-" + e.End.Format("15:04")
	}
	return e.Start.Format("Mon Jan 02 15:04") + " - " + e.End.Format("Mon Jan 02 15:04")
}

func init() {
	eventAddCmd.Flags().String("start", "", "start date or date and time (required)")
	eventAddCmd.Flags().String("end", "", "end date and time")
	eventAddCmd.Flags().Duration("duration", 0, "length of the event, e.g. 90m")
	eventAddCmd.Flags().StringP("location", "l", "", "location")
	eventAddCmd.Flags().StringP("type", "t", "", "event type, e.g. Lecture or Shift")
	eventAddCmd.Flags().String("contact", "", "contact person")

	eventListCmd.Flags().String("from", "", "first day (default today)")
	eventListCmd.Flags().Int("days", 7, "number of days to show")

	eventCmd.AddCommand(eventAddCmd, eventListCmd, eventRmCmd)
	rootCmd.AddCommand(eventCmd)
}
