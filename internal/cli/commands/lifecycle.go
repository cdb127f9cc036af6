package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docstack/internal/errors"
	"docstack/internal/logger"
	"docstack/internal/orchestrator"
)

// LifecycleCommands creates the stack lifecycle commands
func LifecycleCommands(deps *Deps) []*cobra.Command {
	commands := []*cobra.Command{}

	// docstack start
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the stack and wait for readiness",
		Long: `Start every service in the stack and wait through the readiness
sequence: all containers running, probed services healthy, and the
primary application answering a functional command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			noWait, _ := cmd.Flags().GetBool("no-wait")
			return startStack(cmd.Context(), deps, noWait)
		},
	}
	startCmd.Flags().Bool("no-wait", false, "Start services without waiting for readiness")
	commands = append(commands, startCmd)

	// docstack stop
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.WithField("stack", deps.Config.File.Stack.Name).Info("Stopping stack")
			if err := deps.Runtime.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Stack stopped.")
			return nil
		},
	}
	commands = append(commands, stopCmd)

	// docstack restart
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the stack and wait for readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.WithField("stack", deps.Config.File.Stack.Name).Info("Restarting stack")
			if err := deps.Runtime.Restart(cmd.Context()); err != nil {
				return err
			}
			return awaitAndReport(cmd.Context(), deps)
		},
	}
	commands = append(commands, restartCmd)

	// docstack update
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Pull new images, recreate the stack, and wait for readiness",
		Long: `Pull the latest images for every service, stop the stack, bring it
back up on the new images, and wait for readiness. The stack is down
for the duration of the swap.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateStack(cmd.Context(), deps)
		},
	}
	commands = append(commands, updateCmd)

	return commands
}

func startStack(ctx context.Context, deps *Deps, noWait bool) error {
	if !deps.Runtime.IsAvailable(ctx) {
		return errors.New(errors.ErrRuntimeUnavailable, "docker compose is not available on this host")
	}
	logger.WithField("stack", deps.Config.File.Stack.Name).Info("Starting stack")
	if err := deps.Runtime.Up(ctx); err != nil {
		return err
	}
	if noWait {
		fmt.Println("Stack starting; readiness not awaited.")
		return nil
	}
	return awaitAndReport(ctx, deps)
}

func updateStack(ctx context.Context, deps *Deps) error {
	logger.WithField("stack", deps.Config.File.Stack.Name).Info("Pulling images")
	if err := deps.Runtime.Pull(ctx); err != nil {
		return err
	}
	logger.Info("Recreating stack on new images")
	if err := deps.Runtime.Stop(ctx); err != nil {
		return err
	}
	if err := deps.Runtime.Up(ctx); err != nil {
		return err
	}
	return awaitAndReport(ctx, deps)
}

// awaitAndReport runs a readiness session and prints the outcome. A partial
// timeout is reported but not treated as a command failure; only a stack
// where nothing came up at all fails the command.
func awaitAndReport(ctx context.Context, deps *Deps) error {
	fmt.Println("Waiting for services to become ready...")
	report := deps.AwaitReady(ctx)
	fmt.Println(report.Summary())
	if report.Result == orchestrator.Failed {
		return fmt.Errorf("stack failed to start: %s", report.Summary())
	}
	return nil
}
