package commands

import (
	"github.com/spf13/cobra"

	"docstack/internal/types"
)

// StatusCommand creates the status command
func StatusCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every service in the stack",
		Long: `Observe every managed service and report its state. Services with a
configured probe are checked beyond the container state; the rest report
running or down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			observations := deps.Observer.ObserveAll(cmd.Context(), deps.Descriptors)
			report := types.NewStatusReport(deps.Config.File.Stack.Name, deps.Descriptors, observations)

			if asJSON {
				return printJSON(report)
			}
			printStatusTable(report)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}
