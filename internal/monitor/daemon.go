// Package monitor implements the cron-driven health monitor. Each tick is a
// fresh process; the only state carried between ticks is the failure tracker
// row in the state database. Alerting is edge-triggered: a sustained outage
// raises exactly one alert and its recovery exactly one recovery notice.
package monitor

import (
	"context"
	"fmt"
	"strings"

	"docstack/internal/alert"
	"docstack/internal/db"
	"docstack/internal/logger"
	"docstack/internal/metrics"
	"docstack/internal/observer"
)

// LastHealthy and LastUnhealthy are the persisted values of the tracker's
// last_status column.
const (
	LastHealthy   = "healthy"
	LastUnhealthy = "unhealthy"
)

// Daemon samples the stack once per invocation.
type Daemon struct {
	observer   *observer.Observer
	descs      []observer.Descriptor
	tracker    *db.HealthStateRepository
	dispatcher *alert.Dispatcher
	threshold  int
	stackName  string
}

// New creates a monitor daemon. threshold is the number of consecutive
// failed ticks before an alert fires.
func New(obs *observer.Observer, descs []observer.Descriptor, tracker *db.HealthStateRepository, dispatcher *alert.Dispatcher, threshold int, stackName string) *Daemon {
	if threshold <= 0 {
		threshold = 3
	}
	return &Daemon{
		observer:   obs,
		descs:      descs,
		tracker:    tracker,
		dispatcher: dispatcher,
		threshold:  threshold,
		stackName:  stackName,
	}
}

// Tick performs one monitoring pass: observe every service, update the
// failure tracker, and dispatch an event when the aggregate state crosses
// a threshold edge.
func (d *Daemon) Tick(ctx context.Context) error {
	observations := d.observer.ObserveAll(ctx, d.descs)
	unhealthy := observer.Unhealthy(d.descs, observations)
	allHealthy := len(unhealthy) == 0 && len(observations) > 0

	for _, obs := range observations {
		healthy := true
		for _, bad := range unhealthy {
			if bad.Service == obs.Service {
				healthy = false
				break
			}
		}
		metrics.RecordObservation(obs.Service, string(obs.State), healthy)
	}

	var fire *alert.Event
	state, err := d.tracker.Update(ctx, func(state *db.HealthState) {
		if allHealthy {
			if state.LastStatus == LastUnhealthy {
				ev := alert.NewEvent(alert.SeverityRecovered,
					fmt.Sprintf("%s recovered", d.stackName),
					fmt.Sprintf("All services are healthy again after %d failed checks.", state.ConsecutiveFailures))
				fire = &ev
			}
			state.ConsecutiveFailures = 0
			state.LastStatus = LastHealthy
			return
		}

		state.ConsecutiveFailures++
		if state.ConsecutiveFailures >= d.threshold && state.LastStatus != LastUnhealthy {
			ev := alert.NewEvent(alert.SeverityAlert,
				fmt.Sprintf("%s unhealthy", d.stackName),
				describeOutage(unhealthy, state.ConsecutiveFailures))
			fire = &ev
			state.LastStatus = LastUnhealthy
		}
	})
	if err != nil {
		metrics.MonitorTicksTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to update failure tracker: %w", err)
	}

	if allHealthy {
		metrics.MonitorTicksTotal.WithLabelValues("healthy").Inc()
	} else {
		metrics.MonitorTicksTotal.WithLabelValues("unhealthy").Inc()
	}

	logger.WithFields(logger.Fields{
		"all_healthy":          allHealthy,
		"unhealthy":            len(unhealthy),
		"consecutive_failures": state.ConsecutiveFailures,
		"last_status":          state.LastStatus,
	}).Info("Monitor tick complete")

	// Dispatch after the tracker commit so a delivery hang can never leave
	// the tracker behind a fired alert.
	if fire != nil {
		d.dispatcher.Dispatch(ctx, *fire)
	}
	return nil
}

// describeOutage lists every non-healthy service with its diagnostic detail
func describeOutage(unhealthy []observer.Observation, failures int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Unhealthy for %d consecutive checks.\n\n", failures)
	for _, obs := range unhealthy {
		fmt.Fprintf(&b, "- %s: %s", obs.Service, obs.State)
		if obs.Detail != "" {
			fmt.Fprintf(&b, " (%s)", obs.Detail)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
