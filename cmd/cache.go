package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local cache",
}

var cacheListCmd = &cobra.Command{
	Use:     "ls [prefix]",
	Aliases: []string{"list"},
	Short:   "List cache entries with their age and size",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		entries, err := app.storage.List(cmd.Context(), prefix)
		if err != nil {
			return err
		}

		type row struct {
			Key       string    `json:"key"`
			Timestamp time.Time `json:"ts"`
			Items     int       `json:"items"`
		}
		rows := make([]row, 0, len(entries))
		for _, e := range entries {
			var items []json.RawMessage
			_ = json.Unmarshal(e.Items, &items)
			rows = append(rows, row{Key: e.Key, Timestamp: e.Timestamp, Items: len(items)})
		}

		if jsonOutput {
			return printJSON(cmd, rows)
		}
		w := out(cmd)
		if len(rows) == 0 {
			fmt.Fprintln(w, "  Cache is empty")
			return nil
		}
		now := time.Now()
		for _, r := range rows {
			fmt.Fprintf(w, "  %-32s %4d items  %s ago\n", r.Key, r.Items, now.Sub(r.Timestamp).Round(time.Second))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cache entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := app.storage.Clear(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, map[string]int{"cleared": n})
		}
		fmt.Fprintf(out(cmd), "Cleared %d cache entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
