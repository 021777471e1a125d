package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Yunusemreunal45/ezcad2-wscad/cmd/ezmark/commands"
	"github.com/Yunusemreunal45/ezcad2-wscad/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ezmark",
	Short: "ezmark - laser marking automation daemon",
	Long: `ezmark - automation for EZCAD2-driven laser marking.

ezmark watches a directory for spreadsheets and design files, queues them
as jobs, and drives the marking application through a controlled session:
load the design, trigger the mark, close cleanly. On non-Windows hosts a
simulation driver stands in for the real application.

Available commands:
  run    - Start the marking daemon (worker pool + directory watcher)
  jobs   - Manage the job queue (ls, add, show, cancel, clear)
  config - Manage configuration and profiles

Examples:
  ezmark run                     # Start the daemon
  ezmark jobs add parts.xlsx     # Enqueue a spreadsheet manually
  ezmark jobs ls --status failed # List failed jobs
  ezmark config show             # Print the active configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON instead of human-readable output")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
