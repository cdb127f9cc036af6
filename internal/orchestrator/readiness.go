// Package orchestrator drives the startup sequence of the stack: wait for
// every service to run, wait for probed services to become healthy, then
// verify the primary application answers a functional command. Timeouts are
// reported, never raised; the caller decides what a partial start means.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"docstack/internal/logger"
	"docstack/internal/observer"
)

// Result is the terminal outcome of a readiness session.
type Result string

const (
	// AllHealthy means every phase completed within budget
	AllHealthy Result = "all_healthy"
	// PartialTimeout means at least one phase exhausted its budget;
	// the stack may still be usable and the caller usually proceeds
	PartialTimeout Result = "partial_timeout"
	// Failed means nothing came up at all during the running phase
	Failed Result = "failed"
)

// Budgets are the per-phase attempt limits, one attempt per poll interval.
type Budgets struct {
	Running int
	Healthy int
	Verify  int
}

// Report is the full outcome of one readiness session.
type Report struct {
	Result     Result                          `json:"result"`
	NotRunning []string                        `json:"not_running,omitempty"`
	NotHealthy []string                        `json:"not_healthy,omitempty"`
	Verified   bool                            `json:"verified"`
	Detail     string                          `json:"detail,omitempty"`
	Elapsed    time.Duration                   `json:"elapsed"`
	Final      map[string]observer.Observation `json:"final"`
}

// Summary renders the report for the operator, naming every service that is
// still not ready rather than a bare failure.
func (r *Report) Summary() string {
	switch r.Result {
	case AllHealthy:
		return "all services healthy"
	case Failed:
		return "no services came up: " + strings.Join(r.NotRunning, ", ")
	default:
		parts := []string{}
		if len(r.NotRunning) > 0 {
			parts = append(parts, "not running: "+strings.Join(r.NotRunning, ", "))
		}
		if len(r.NotHealthy) > 0 {
			parts = append(parts, "not healthy: "+strings.Join(r.NotHealthy, ", "))
		}
		if !r.Verified && r.Detail != "" {
			parts = append(parts, r.Detail)
		}
		if len(parts) == 0 {
			return "timed out"
		}
		return "timed out; " + strings.Join(parts, "; ")
	}
}

// Orchestrator runs readiness sessions against the observer.
type Orchestrator struct {
	observer *observer.Observer
	runtime  observer.Runtime
	interval time.Duration
}

// New creates an orchestrator with the standard 1-second poll cadence.
func New(obs *observer.Observer, runtime observer.Runtime) *Orchestrator {
	return &Orchestrator{
		observer: obs,
		runtime:  runtime,
		interval: time.Second,
	}
}

// SetInterval overrides the poll cadence. Tests use this to avoid real waits.
func (o *Orchestrator) SetInterval(d time.Duration) {
	o.interval = d
}

// AwaitReady runs the three readiness phases in strict sequence and always
// returns a report. primary is the application service verified in phase 3;
// an empty verify command skips that phase.
func (o *Orchestrator) AwaitReady(ctx context.Context, descs []observer.Descriptor, primary string, verify []string, budgets Budgets) *Report {
	start := time.Now()
	report := &Report{Final: make(map[string]observer.Observation, len(descs))}

	notRunning, cameUp := o.awaitRunning(ctx, descs, budgets.Running, report)
	report.NotRunning = notRunning

	if len(notRunning) > 0 && !cameUp {
		report.Result = Failed
		report.Elapsed = time.Since(start)
		return report
	}

	report.NotHealthy = o.awaitHealthy(ctx, descs, budgets.Healthy, report)

	report.Verified, report.Detail = o.verifyApplication(ctx, primary, verify, budgets.Verify)

	if len(report.NotRunning) == 0 && len(report.NotHealthy) == 0 && report.Verified {
		report.Result = AllHealthy
	} else {
		report.Result = PartialTimeout
	}
	report.Elapsed = time.Since(start)
	return report
}

// awaitRunning polls until every service has left the down state or the
// budget is spent. Returns the services that never came up and whether any
// service was seen up at all.
func (o *Orchestrator) awaitRunning(ctx context.Context, descs []observer.Descriptor, budget int, report *Report) ([]string, bool) {
	pending := make(map[string]observer.Descriptor, len(descs))
	for _, d := range descs {
		pending[d.Name] = d
	}

	cameUp := false
	for attempt := 0; attempt < budget && len(pending) > 0; attempt++ {
		if attempt > 0 && !o.sleep(ctx) {
			break
		}
		for name, d := range pending {
			obs := o.observer.Observe(ctx, d)
			report.Final[name] = obs
			if obs.State.Up() {
				cameUp = true
				delete(pending, name)
			}
		}
	}

	lagging := make([]string, 0, len(pending))
	for name := range pending {
		lagging = append(lagging, name)
	}
	sort.Strings(lagging)
	if len(lagging) > 0 {
		logger.WithField("services", strings.Join(lagging, ",")).Warn("Services did not reach running state within budget")
	}
	return lagging, cameUp || len(pending) < len(descs)
}

// awaitHealthy polls only services that declare a probe until each reports
// healthy or the budget is spent. Non-probed services cannot be verified
// further and are assumed ready once running.
func (o *Orchestrator) awaitHealthy(ctx context.Context, descs []observer.Descriptor, budget int, report *Report) []string {
	pending := make(map[string]observer.Descriptor)
	for _, d := range descs {
		if d.Probe != nil {
			pending[d.Name] = d
		}
	}

	for attempt := 0; attempt < budget && len(pending) > 0; attempt++ {
		if attempt > 0 && !o.sleep(ctx) {
			break
		}
		for name, d := range pending {
			obs := o.observer.Observe(ctx, d)
			report.Final[name] = obs
			if obs.State == observer.StateHealthy {
				delete(pending, name)
			}
		}
	}

	lagging := make([]string, 0, len(pending))
	for name := range pending {
		lagging = append(lagging, name)
	}
	sort.Strings(lagging)
	if len(lagging) > 0 {
		logger.WithField("services", strings.Join(lagging, ",")).Warn("Services did not become healthy within budget")
	}
	return lagging
}

// verifyApplication runs the functional no-op inside the primary service.
// This is stronger than a health probe: it exercises the application itself.
func (o *Orchestrator) verifyApplication(ctx context.Context, primary string, verify []string, budget int) (bool, string) {
	if len(verify) == 0 || primary == "" {
		return true, ""
	}

	var lastErr error
	for attempt := 0; attempt < budget; attempt++ {
		if attempt > 0 && !o.sleep(ctx) {
			break
		}
		if _, err := o.runtime.Exec(ctx, primary, verify...); err != nil {
			lastErr = err
			continue
		}
		return true, ""
	}

	detail := fmt.Sprintf("application verification failed on %s", primary)
	if lastErr != nil {
		detail = fmt.Sprintf("%s: %v", detail, lastErr)
	}
	logger.Warn(detail)
	return false, detail
}

// sleep waits one poll interval; returns false when the context is done.
// Interrupting a wait degrades to a partial result, never a hang.
func (o *Orchestrator) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(o.interval):
		return true
	}
}

