// Package observer normalizes heterogeneous runtime and probe signals into a
// single per-service state model. An observation never fails: anything that
// prevents observing a service is itself an observation (Down or Degraded).
package observer

import (
	"context"
	"fmt"
	"time"

	"docstack/internal/config"
	"docstack/internal/container"
	"docstack/internal/errors"
)

// State is the normalized lifecycle state of one service.
type State string

const (
	// StateNotFound means the runtime has no container for the service
	StateNotFound State = "not_found"
	// StateStarting means the container exists but is not yet running,
	// or its runtime health check is still warming up
	StateStarting State = "starting"
	// StateRunning means the process is alive and no probe is configured
	StateRunning State = "running"
	// StateHealthy means the process is alive and its probe passes
	StateHealthy State = "healthy"
	// StateDegraded means the process is alive but its probe fails
	StateDegraded State = "degraded"
	// StateDown means the container is absent, exited, or unreachable
	StateDown State = "down"
)

// Up reports whether the service process is considered alive.
func (s State) Up() bool {
	switch s {
	case StateRunning, StateHealthy, StateDegraded, StateStarting:
		return true
	}
	return false
}

// Descriptor is the static description of one managed service.
type Descriptor struct {
	Name     string
	Role     string // "stateful" or "stateless"
	Probe    Probe  // nil when the service has no probe
	Stateful bool
}

// Observation is one point-in-time reading of a service.
type Observation struct {
	Service    string    `json:"service"`
	State      State     `json:"state"`
	Detail     string    `json:"detail,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Runtime is the slice of the container runtime the observer needs.
type Runtime interface {
	Status(ctx context.Context, service string) (*container.ServiceStatus, error)
	Exec(ctx context.Context, service string, command ...string) ([]byte, error)
}

// Observer produces observations for managed services.
type Observer struct {
	runtime Runtime
}

// New creates an observer over the given runtime.
func New(runtime Runtime) *Observer {
	return &Observer{runtime: runtime}
}

// Descriptors builds the immutable service descriptors from configuration,
// in deterministic name order.
func Descriptors(cfg *config.Manager) []Descriptor {
	names := cfg.ServiceNames()
	descs := make([]Descriptor, 0, len(names))
	for _, name := range names {
		svc := cfg.File.Services[name]
		d := Descriptor{
			Name:     name,
			Role:     svc.Role,
			Stateful: svc.Role == "stateful",
		}
		if svc.Probe != nil {
			d.Probe = NewProbe(*svc.Probe)
		}
		descs = append(descs, d)
	}
	return descs
}

// Observe reads the current state of one service. It never returns an error:
// an unreachable runtime or absent service yields Down with a diagnostic
// detail, and a failing probe yields Degraded.
func (o *Observer) Observe(ctx context.Context, desc Descriptor) Observation {
	obs := Observation{
		Service:    desc.Name,
		ObservedAt: time.Now().UTC(),
	}

	status, err := o.runtime.Status(ctx, desc.Name)
	if err != nil {
		if errors.Is(err, errors.ErrServiceNotFound) {
			obs.State = StateNotFound
			obs.Detail = "no container exists for this service"
			return obs
		}
		obs.State = StateDown
		obs.Detail = fmt.Sprintf("runtime unreachable: %v", err)
		return obs
	}

	switch status.State {
	case "running":
		// fall through to probe evaluation below
	case "restarting", "created":
		obs.State = StateStarting
		obs.Detail = fmt.Sprintf("container state %s", status.State)
		return obs
	default:
		obs.State = StateDown
		if status.ExitCode != 0 {
			obs.Detail = fmt.Sprintf("container %s with exit code %d", status.State, status.ExitCode)
		} else {
			obs.Detail = fmt.Sprintf("container state %s", status.State)
		}
		return obs
	}

	// The runtime's own health check, when declared in the compose file,
	// takes the service through a starting window before any probe runs.
	if status.Health == "starting" {
		obs.State = StateStarting
		obs.Detail = "runtime health check warming up"
		return obs
	}

	if desc.Probe == nil {
		obs.State = StateRunning
		return obs
	}

	if err := desc.Probe.Check(ctx, o.runtime, desc.Name); err != nil {
		// The process is alive; only the check failed. Degraded, not Down.
		obs.State = StateDegraded
		obs.Detail = err.Error()
		return obs
	}

	obs.State = StateHealthy
	return obs
}

// ObserveAll observes every descriptor, in order.
func (o *Observer) ObserveAll(ctx context.Context, descs []Descriptor) []Observation {
	observations := make([]Observation, 0, len(descs))
	for _, desc := range descs {
		observations = append(observations, o.Observe(ctx, desc))
	}
	return observations
}

// AllHealthy reports whether every observation is operationally healthy.
// Services without a probe count as healthy once running.
func AllHealthy(descs []Descriptor, observations []Observation) bool {
	probed := make(map[string]bool, len(descs))
	for _, d := range descs {
		probed[d.Name] = d.Probe != nil
	}
	for _, obs := range observations {
		if obs.State == StateHealthy {
			continue
		}
		if obs.State == StateRunning && !probed[obs.Service] {
			continue
		}
		return false
	}
	return len(observations) > 0
}

// Unhealthy returns the observations that are not operationally healthy.
func Unhealthy(descs []Descriptor, observations []Observation) []Observation {
	probed := make(map[string]bool, len(descs))
	for _, d := range descs {
		probed[d.Name] = d.Probe != nil
	}
	var bad []Observation
	for _, obs := range observations {
		if obs.State == StateHealthy {
			continue
		}
		if obs.State == StateRunning && !probed[obs.Service] {
			continue
		}
		bad = append(bad, obs)
	}
	return bad
}
