package cmd

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/xvierd/kage-cli/internal/domain"
)

var (
	syncDate     string
	syncWatch    bool
	syncSchedule string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local cache from the server",
	Long: `Fetch the events of a day, the event types and the todo list into the
local cache so the views open with fresh data.

With --watch the sync repeats on a cron schedule (sync.schedule in the
config, or --schedule) until interrupted.`,
	Example: `  kage sync
  kage sync --watch --schedule "*/5 * * * *"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncDate != "" {
			if err := domain.ValidateDate(syncDate); err != nil {
				return err
			}
		}
		if !syncWatch {
			return runSync(cmd.Context(), cmd)
		}

		schedule := syncSchedule
		if schedule == "" {
			schedule = app.config.Sync.Schedule
		}
		return watchSync(setupSignalHandler(), cmd, schedule)
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncDate, "date", "d", "", "Day to sync as YYYY-MM-DD (default: today)")
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false, "Keep syncing on a schedule")
	syncCmd.Flags().StringVar(&syncSchedule, "schedule", "", "Cron schedule for --watch (default: sync.schedule)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context, cmd *cobra.Command) error {
	date := syncDate
	if date == "" {
		date = today()
	}
	report, err := app.sync.Sync(ctx, date)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, report)
	}
	fmt.Fprintf(out(cmd), "Synced %s: %d events, %d event types, %d todos (%s)\n",
		report.Date, report.Events, report.EventTypes, report.Todos, report.Took.Round(1e6))
	return nil
}

// watchSync runs a sync now and then on every tick of schedule until ctx ends.
// A failed run is reported and the schedule continues.
func watchSync(ctx context.Context, cmd *cobra.Command, schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	run := func() {
		if err := runSync(ctx, cmd); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, run); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Syncing on %q, press Ctrl+C to stop\n", schedule)
	run()
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
