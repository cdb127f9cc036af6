package cli

import (
	"github.com/spf13/cobra"

	"docstack/internal/logger"
)

// createRootCommand creates the root command with global flags
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docstack",
		Short: "Operator console for a containerized document-management stack",
		Long: `docstack operates a docker-compose deployment of a document-management
application: it starts and stops the stack, waits until services are
operationally healthy rather than merely running, monitors health on a
schedule with edge-triggered alerting, and takes consistent backups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logger.SetLevel(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to showing help if no subcommand
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	return rootCmd
}
