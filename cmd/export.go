package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/export"
)

var (
	exportFormat string
	exportDate   string
	exportDays   int
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the timeline",
	Long: `Export the events of one or more days as iCalendar (ics), YAML, CSV
or Markdown (md). --days counts back from --date, which defaults to today.`,
	Example: `  kage export --format ics --days 7 --out week.ics
  kage export --format md`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Output format: ics, yaml, csv or md")
	exportCmd.Flags().StringVarP(&exportDate, "date", "d", "", "Last day to export as YYYY-MM-DD (default: today)")
	exportCmd.Flags().IntVar(&exportDays, "days", 1, "Number of days to export")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to this file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	if exportDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	last := exportDate
	if last == "" {
		last = today()
	}
	if err := domain.ValidateDate(last); err != nil {
		return err
	}

	// Oldest day first.
	days := make([]export.Day, 0, exportDays)
	for i := exportDays - 1; i >= 0; i-- {
		date := domain.AddDays(last, -i)
		events, err := app.timeline.Lookup(cmd.Context(), date, false)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", date, err)
		}
		days = append(days, export.Day{Date: date, Events: events})
	}

	write := func(w io.Writer) error {
		if err := export.Write(w, format, days, export.Options{}); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		return nil
	}

	if exportOut == "" {
		return write(out(cmd))
	}
	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOut, err)
	}
	if err := writeAndClose(f, write); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d day(s) to %s\n", len(days), exportOut)
	return nil
}

// writeAndClose runs write against wc, then closes it and returns the
// close error as well.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	return nil
}
