// Package cmd provides the CLI commands for the kage application.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xvierd/kage-cli/internal/adapters/tui"
	"github.com/xvierd/kage-cli/internal/domain"
)

var (
	// Version info (set at build time via ldflags)
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"

	// Global flags
	dbPath     string
	configPath string
	baseURL    string
	jsonOutput bool
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kage",
	Short: "kage - your day as a timeline, plus a todo list",
	Long: `kage is a terminal client for the kage life log: a timeline of what
happened today and a todo list, cached locally so it opens instantly.

Run "kage" with no arguments to open today's timeline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeServices(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return cleanupServices()
	},
	RunE: runTimeline,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the cache database (default: ~/.kage/kage.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default: ~/.kage/config.toml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Override the API base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")

	// Set version - cobra handles --version automatically
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("kage CLI\nVersion: {{.Version}}\n")

	rootCmd.Flags().StringVarP(&timelineDate, "date", "d", "", "Day to open as YYYY-MM-DD (default: today)")
}

var timelineDate string

// isTerminal decides between the interactive views and plain output.
var isTerminal = tui.IsTerminal

// runTimeline opens the timeline view, or prints the day when stdout is
// not a terminal.
func runTimeline(cmd *cobra.Command, args []string) error {
	if timelineDate != "" {
		if err := domain.ValidateDate(timelineDate); err != nil {
			return err
		}
	}
	if jsonOutput || !isTerminal() {
		return printDay(cmd, timelineDate)
	}

	date := timelineDate
	if date == "" {
		date = today()
	}
	return withTUI(cmd, func(ctx context.Context) error {
		return tui.RunTimeline(ctx, app.timeline, app.toasts, &app.config.Theme, date)
	})
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	return nil
}

// joinArgs combines all arguments into one title.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// getDir returns the directory of a file path.
func getDir(path string) string {
	lastSep := 0
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			lastSep = i
			break
		}
	}
	if lastSep == 0 {
		return "."
	}
	return path[:lastSep]
}

// out is a short alias used by the printers.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
