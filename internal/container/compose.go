// Package container drives the docker compose CLI for the managed stack.
// It is the only package that touches the container runtime directly.
package container

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"docstack/internal/errors"
	"docstack/internal/logger"
)

// DefaultCommandTimeout bounds a single runtime CLI invocation.
const DefaultCommandTimeout = 30 * time.Second

// ServiceStatus is the raw runtime view of one compose service.
type ServiceStatus struct {
	Service     string `json:"Service"`
	Name        string `json:"Name"`
	ContainerID string `json:"ID"`
	State       string `json:"State"`  // running, exited, paused, restarting, created, dead
	Health      string `json:"Health"` // healthy, unhealthy, starting, or empty
	ExitCode    int    `json:"ExitCode"`
}

// ComposeRuntime wraps the docker compose CLI for a single deployment.
type ComposeRuntime struct {
	composeFile string
	project     string
	executor    CommandExecutor
}

// NewComposeRuntime creates a runtime bound to one compose file.
func NewComposeRuntime(composeFile, project string, executor CommandExecutor) *ComposeRuntime {
	if executor == nil {
		executor = &DefaultCommandExecutor{}
	}
	return &ComposeRuntime{
		composeFile: composeFile,
		project:     project,
		executor:    executor,
	}
}

// IsAvailable checks if the docker compose CLI is usable on this host
func (r *ComposeRuntime) IsAvailable(ctx context.Context) bool {
	cmd := r.executor.CommandContext(ctx, "docker", "compose", "version")
	return cmd.Run() == nil
}

// composeArgs prefixes the per-deployment flags onto a compose subcommand
func (r *ComposeRuntime) composeArgs(extra ...string) []string {
	args := []string{"compose", "-f", r.composeFile}
	if r.project != "" {
		args = append(args, "-p", r.project)
	}
	return append(args, extra...)
}

// Status returns the runtime state of one service. A service the runtime
// does not know about yields ErrServiceNotFound, not a nil status.
func (r *ComposeRuntime) Status(ctx context.Context, service string) (*ServiceStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultCommandTimeout)
	defer cancel()

	args := r.composeArgs("ps", "--all", "--format", "json", service)
	cmd := r.executor.CommandContext(ctx, "docker", args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRuntimeUnavailable,
			fmt.Sprintf("docker compose ps failed for %s", service))
	}

	statuses := parsePSOutput(output)
	if len(statuses) == 0 {
		return nil, errors.Newf(errors.ErrServiceNotFound, "no container for service %s", service)
	}
	return statuses[0], nil
}

// StatusAll returns the runtime state of every service in the deployment
func (r *ComposeRuntime) StatusAll(ctx context.Context) ([]*ServiceStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultCommandTimeout)
	defer cancel()

	args := r.composeArgs("ps", "--all", "--format", "json")
	cmd := r.executor.CommandContext(ctx, "docker", args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRuntimeUnavailable, "docker compose ps failed")
	}
	return parsePSOutput(output), nil
}

// parsePSOutput decodes compose ps output. The CLI emits newline-separated
// JSON objects; some versions emit a single JSON array instead.
func parsePSOutput(output []byte) []*ServiceStatus {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" || trimmed == "[]" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var statuses []*ServiceStatus
		if err := json.Unmarshal([]byte(trimmed), &statuses); err != nil {
			logger.WithError(err).Debug("Cannot parse compose ps array output")
			return nil
		}
		return statuses
	}

	var statuses []*ServiceStatus
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var st ServiceStatus
		if err := json.Unmarshal([]byte(line), &st); err != nil {
			// Skip malformed JSON lines
			continue
		}
		statuses = append(statuses, &st)
	}
	return statuses
}

// Up starts the named services detached, or the whole stack when none given
func (r *ComposeRuntime) Up(ctx context.Context, services ...string) error {
	args := r.composeArgs(append([]string{"up", "-d"}, services...)...)
	cmd := r.executor.CommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrap(err, errors.ErrStackStartFailed,
			fmt.Sprintf("docker compose up failed: %s", strings.TrimSpace(string(output))))
	}
	return nil
}

// Stop stops the named services, or the whole stack when none given
func (r *ComposeRuntime) Stop(ctx context.Context, services ...string) error {
	args := r.composeArgs(append([]string{"stop"}, services...)...)
	cmd := r.executor.CommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrap(err, errors.ErrStackStopFailed,
			fmt.Sprintf("docker compose stop failed: %s", strings.TrimSpace(string(output))))
	}
	return nil
}

// Restart restarts the named services, or the whole stack when none given
func (r *ComposeRuntime) Restart(ctx context.Context, services ...string) error {
	args := r.composeArgs(append([]string{"restart"}, services...)...)
	cmd := r.executor.CommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrap(err, errors.ErrStackStartFailed,
			fmt.Sprintf("docker compose restart failed: %s", strings.TrimSpace(string(output))))
	}
	return nil
}

// Pull pulls the latest images for the stack
func (r *ComposeRuntime) Pull(ctx context.Context) error {
	args := r.composeArgs("pull")
	cmd := r.executor.CommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrap(err, errors.ErrStackStartFailed,
			fmt.Sprintf("docker compose pull failed: %s", strings.TrimSpace(string(output))))
	}
	return nil
}

// Exec runs a command inside a running service container
func (r *ComposeRuntime) Exec(ctx context.Context, service string, command ...string) ([]byte, error) {
	return r.ExecInput(ctx, service, nil, command...)
}

// ExecInput runs a command inside a running service container with the given
// stdin. Used for replaying database dumps.
func (r *ComposeRuntime) ExecInput(ctx context.Context, service string, stdin io.Reader, command ...string) ([]byte, error) {
	args := r.composeArgs(append([]string{"exec", "-T", service}, command...)...)
	cmd := r.executor.CommandContext(ctx, "docker", args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	output, err := cmd.Output()
	if err != nil {
		return output, errors.Wrap(err, errors.ErrExecFailed,
			fmt.Sprintf("exec in %s failed: %s", service, strings.Join(command, " ")))
	}
	return output, nil
}

// ContainerID returns the container ID backing a compose service
func (r *ComposeRuntime) ContainerID(ctx context.Context, service string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultCommandTimeout)
	defer cancel()

	args := r.composeArgs("ps", "-q", service)
	cmd := r.executor.CommandContext(ctx, "docker", args...)
	output, err := cmd.Output()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrRuntimeUnavailable,
			fmt.Sprintf("failed to get container ID for %s", service))
	}

	id := strings.TrimSpace(string(output))
	if id == "" {
		return "", errors.Newf(errors.ErrServiceNotFound, "no container for service %s", service)
	}
	return id, nil
}

// ComposeFile returns the compose file path this runtime is bound to
func (r *ComposeRuntime) ComposeFile() string {
	return r.composeFile
}
