package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"docstack/internal/alert"
)

// MonitorCommands creates the monitor command group
func MonitorCommands(deps *Deps) *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Health monitor operations",
	}

	// docstack monitor tick
	tickCmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one health check pass",
		Long: `Observe every service once, update the persisted failure counter,
and dispatch alerts on sustained-outage or recovery transitions. Meant
to be run from cron or a systemd timer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.Monitor.Tick(cmd.Context())
		},
	}
	monitorCmd.AddCommand(tickCmd)

	// docstack monitor test-alert
	testCmd := &cobra.Command{
		Use:   "test-alert",
		Short: "Send a test event through every configured alert sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Dispatcher.SinkCount() == 0 {
				fmt.Println("No alert sinks configured.")
				return nil
			}
			event := alert.NewEvent(alert.SeverityTest,
				fmt.Sprintf("[%s] Test alert", deps.Config.File.Stack.Name),
				"This is a test alert. Delivery of this message confirms the sink works.")
			deps.Dispatcher.Dispatch(cmd.Context(), event)
			fmt.Printf("Test event dispatched to %d sink(s). Check the delivery targets.\n", deps.Dispatcher.SinkCount())
			return nil
		},
	}
	monitorCmd.AddCommand(testCmd)

	return monitorCmd
}
