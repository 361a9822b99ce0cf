package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/xvierd/kage-cli/internal/adapters/tui"
	"github.com/xvierd/kage-cli/internal/domain"
)

var (
	eventsDate    string
	eventsRefresh bool
	eventTime     string
	eventTitle    string
	eventType     string
	eventValue    string
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"ev"},
	Short:   "List and edit the events of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printDay(cmd, eventsDate)
	},
}

var eventsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print the events of a day grouped by part of day",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printDay(cmd, eventsDate)
	},
}

var eventsAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Log an event now, or at --time today",
	Example: `  kage events add Coffee
  kage events add --time 07:30 Run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title := joinArgs(args)
		if title == "" && !jsonOutput && isTerminal() {
			res := tui.RunTextPrompt("New event:", "what happened?", &app.config.Theme)
			if res.Aborted {
				return nil
			}
			title = res.Value
		}

		ev, err := app.timeline.Add(cmd.Context(), title, eventTime)
		if err != nil {
			return err
		}
		return printEvent(cmd, ev)
	},
}

var eventsQuickCmd = &cobra.Command{
	Use:   "quick [n]",
	Short: "Log an event from the n-th quick-add preset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := app.timeline.LoadEventTypes(ctx, false); err != nil {
			return err
		}
		presets := app.timeline.Presets()

		var index int
		switch {
		case len(args) == 1:
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid preset number %q", args[0])
			}
			index = n - 1
		case !jsonOutput && isTerminal() && len(presets) > 0:
			res := tui.RunPicker("Quick add", tui.PresetItems(presets), "↑/↓ move · 1-9 pick · enter confirm · esc cancel", &app.config.Theme)
			if res.Aborted {
				return nil
			}
			index = res.Index
		default:
			for i, p := range presets {
				fmt.Fprintf(out(cmd), "%d  %s\n", i+1, p)
			}
			return nil
		}

		ev, err := app.timeline.QuickAdd(ctx, index)
		if err != nil {
			return err
		}
		return printEvent(cmd, ev)
	},
}

var eventsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the title or time of an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch domain.EventPatch
		if cmd.Flags().Changed("title") {
			patch.Title = &eventTitle
		}
		if cmd.Flags().Changed("time") {
			patch.StartTime = &eventTime
		}
		if cmd.Flags().Changed("type") {
			patch.EventType = &eventType
		}
		if cmd.Flags().Changed("value") {
			patch.ValueNumber = &eventValue
		}
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to change: pass --title, --time, --type or --value")
		}

		ctx := cmd.Context()
		if err := openDay(ctx, eventsDate); err != nil {
			return err
		}
		ev, err := app.timeline.Update(ctx, args[0], patch)
		if err != nil {
			return err
		}
		return printEvent(cmd, ev)
	},
}

var eventsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an event",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := openDay(ctx, eventsDate); err != nil {
			return err
		}
		if err := app.timeline.Delete(ctx, args[0]); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, map[string]string{"deleted": args[0]})
		}
		fmt.Fprintf(out(cmd), "Deleted event %s\n", args[0])
		return nil
	},
}

func init() {
	eventsCmd.PersistentFlags().StringVarP(&eventsDate, "date", "d", "", "Day as YYYY-MM-DD (default: today)")
	eventsListCmd.Flags().BoolVarP(&eventsRefresh, "refresh", "r", false, "Skip the cache and fetch from the server")
	eventsAddCmd.Flags().StringVarP(&eventTime, "time", "t", "", "Start time as HH:MM (default: now)")
	eventsEditCmd.Flags().StringVar(&eventTitle, "title", "", "New title")
	eventsEditCmd.Flags().StringVarP(&eventTime, "time", "t", "", "New start time as HH:MM")
	eventsEditCmd.Flags().StringVar(&eventType, "type", "", "New event type name")
	eventsEditCmd.Flags().StringVar(&eventValue, "value", "", "New numeric value")

	eventsCmd.AddCommand(eventsListCmd, eventsAddCmd, eventsQuickCmd, eventsEditCmd, eventsDeleteCmd)
	rootCmd.AddCommand(eventsCmd)
}

func today() string {
	return domain.FormatDate(time.Now())
}

// openDay selects date in the timeline so edits land in its cache entry.
func openDay(ctx context.Context, date string) error {
	if date == "" {
		date = today()
	}
	return app.timeline.Open(ctx, date, false)
}

// printDay writes the timeline of date, grouped by part of day.
func printDay(cmd *cobra.Command, date string) error {
	if date == "" {
		date = today()
	}
	events, err := app.timeline.Lookup(cmd.Context(), date, eventsRefresh)
	if err != nil {
		return err
	}
	sections := domain.BucketEvents(events)

	if jsonOutput {
		return printJSON(cmd, map[string]interface{}{
			"date":     date,
			"sections": sectionsData(sections),
		})
	}

	w := out(cmd)
	fmt.Fprintf(w, "%s\n", date)
	if len(events) == 0 {
		fmt.Fprintln(w, "  No events")
		return nil
	}
	for _, s := range sections {
		if len(s.Items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  %s\n", s.Label)
		for _, ev := range s.Items {
			fmt.Fprintf(w, "    %s  %s  (%s)\n", ev.Time, ev.Title, ev.ID)
		}
	}
	return nil
}

func sectionsData(sections []domain.Section) []map[string]interface{} {
	data := make([]map[string]interface{}, 0, len(sections))
	for _, s := range sections {
		data = append(data, map[string]interface{}{
			"key":    s.Key,
			"label":  s.Label,
			"events": s.Items,
		})
	}
	return data
}

func printEvent(cmd *cobra.Command, ev domain.Event) error {
	if jsonOutput {
		return printJSON(cmd, ev)
	}
	fmt.Fprintf(out(cmd), "%s  %s  (%s)\n", ev.Time, ev.Title, ev.ID)
	return nil
}
