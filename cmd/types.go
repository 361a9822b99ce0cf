package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var typesRefresh bool

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the event types used as quick-add presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.timeline.LoadEventTypes(cmd.Context(), typesRefresh); err != nil {
			return err
		}
		presets := app.timeline.Presets()
		if jsonOutput {
			if presets == nil {
				presets = []string{}
			}
			return printJSON(cmd, presets)
		}
		for i, p := range presets {
			fmt.Fprintf(out(cmd), "%d  %s\n", i+1, p)
		}
		return nil
	},
}

func init() {
	typesCmd.Flags().BoolVarP(&typesRefresh, "refresh", "r", false, "Skip the cache and fetch from the server")
	rootCmd.AddCommand(typesCmd)
}
