package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xvierd/kage-cli/internal/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server for integration with AI assistants.
The server exposes tools for reading and editing the timeline and the todo list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; everything else goes to stderr.
		stderr := cmd.ErrOrStderr()
		fmt.Fprintln(stderr, "Starting MCP server on stdio, press Ctrl+C to stop")
		app.notifier.SetOutput(nil)

		server := mcp.NewServer(app.state, Version)
		if err := server.Start(setupSignalHandler()); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
