package commands

import (
	"github.com/spf13/cobra"

	"docstack/internal/logger"
)

// ServerCommand creates the server command
func ServerCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the status API server",
		Long: `Run the HTTP status server in the foreground. It exposes the live
stack status, backup and alert history, Prometheus metrics, and a
websocket feed of status updates. Stop it with an interrupt signal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config.File.Server
			logger.WithFields(logger.Fields{
				"host": cfg.Host,
				"port": cfg.Port,
			}).Info("Starting status server")
			return deps.Server.Start(cmd.Context())
		},
	}
}
