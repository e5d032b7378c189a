package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/calendar"
	"github.com/studysync/studysync/internal/types"
	"github.com/studysync/studysync/internal/ui"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	GroupID: "tasks",
	Short:   "Import events from an external calendar",
}

var calendarImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import upcoming events from the configured calendar",
	Long: `Import events from today through the lookahead window into the local
store. Re-importing updates changed events and leaves the rest alone.

Providers:
  ics     an .ics file or URL (calendar.ics_url or --source)
  google  Google Calendar; run "sy calendar auth" once first

Examples:
  sy calendar import
  sy calendar import --provider ics --source ~/Downloads/schedule.ics --days 30`,
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		source, _ := cmd.Flags().GetString("source")
		days, _ := cmd.Flags().GetInt("days")
		if provider == "" {
			provider = cfg.Calendar.Provider
		}
		if days <= 0 {
			days = cfg.Calendar.LookaheadDays
		}

		ctx, cancel := signalContext()
		defer cancel()

		p, err := newCalendarProvider(ctx, provider, source)
		if err != nil {
			FatalError("%v", err)
		}
		from := types.TruncateDay(time.Now())
		to := from.AddDate(0, 0, days)

		res, err := calendar.Import(ctx, openStore(), p, from, to)
		if err != nil {
			FatalError("calendar import failed: %v", err)
		}
		logger("calendar").Printf("Imported from %s: fetched=%d created=%d updated=%d unchanged=%d",
			p.Name(), res.Fetched, res.Created, res.Updated, res.Unchanged)

		if jsonOutput {
			outputJSON(res)
			return
		}
		fmt.Printf("%s %d events from %s (%s to %s): %d created, %d updated, %d unchanged\n",
			ui.RenderPass("✓"), res.Fetched, p.Name(),
			from.Format(types.DateLayout), to.Format(types.DateLayout),
			res.Created, res.Updated, res.Unchanged)
	},
}

func newCalendarProvider(ctx context.Context, provider, source string) (calendar.Provider, error) {
	switch provider {
	case "", "ics":
		if source == "" {
			source = cfg.Calendar.ICSURL
		}
		if source == "" {
			return nil, fmt.Errorf("no calendar source: set calendar.ics_url or pass --source")
		}
		return calendar.NewICSProvider(source)
	case "google":
		oauthCfg, err := calendar.LoadOAuthConfig(cfg.Calendar.CredentialsFile, cfg.Calendar.CallbackPort)
		if err != nil {
			return nil, err
		}
		client, err := calendar.HTTPClient(ctx, oauthCfg, cfg.Calendar.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("%w (run \"sy calendar auth\")", err)
		}
		return calendar.NewGoogleProvider(ctx, client, cfg.Calendar.GoogleCalendar)
	default:
		return nil, fmt.Errorf("unknown calendar provider %q (want ics or google)", provider)
	}
}

var calendarAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize read access to Google Calendar",
	Long: `Authorize read-only access to Google Calendar.

Opens a one-time local callback server, prints the consent URL, and saves
the token to calendar.token_file. Requires an OAuth client credentials file
at calendar.credentials_file.`,
	Run: func(cmd *cobra.Command, args []string) {
		oauthCfg, err := calendar.LoadOAuthConfig(cfg.Calendar.CredentialsFile, cfg.Calendar.CallbackPort)
		if err != nil {
			FatalError("%v", err)
		}
		ctx, cancel := signalContext()
		defer cancel()
		if _, err := calendar.Authorize(ctx, oauthCfg, cfg.Calendar.TokenFile, os.Stdout); err != nil {
			FatalError("authorization failed: %v", err)
		}
		fmt.Printf("%s Token saved to %s\n", ui.RenderPass("✓"), cfg.Calendar.TokenFile)
	},
}

func init() {
	calendarImportCmd.Flags().String("provider", "", "ics or google (default from config)")
	calendarImportCmd.Flags().String("source", "", "ics file or URL (default calendar.ics_url)")
	calendarImportCmd.Flags().Int("days", 0, "days ahead to import (default calendar.lookahead_days)")

	calendarCmd.AddCommand(calendarImportCmd, calendarAuthCmd)
	rootCmd.AddCommand(calendarCmd)
}
