// Package types holds report shapes shared by the CLI and the status API.
package types

import (
	"time"

	"docstack/internal/backup"
	"docstack/internal/observer"
)

// ServiceReport is one service's line in a status report.
type ServiceReport struct {
	Service    string    `json:"service"`
	Role       string    `json:"role"`
	State      string    `json:"state"`
	Probe      string    `json:"probe,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// StatusReport is the aggregate view of the stack.
type StatusReport struct {
	Stack       string          `json:"stack"`
	AllHealthy  bool            `json:"all_healthy"`
	Services    []ServiceReport `json:"services"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// NewStatusReport builds a report from a fresh set of observations.
func NewStatusReport(stack string, descs []observer.Descriptor, observations []observer.Observation) *StatusReport {
	roles := make(map[string]string, len(descs))
	probes := make(map[string]string, len(descs))
	for _, d := range descs {
		roles[d.Name] = d.Role
		if d.Probe != nil {
			probes[d.Name] = d.Probe.Describe()
		}
	}

	report := &StatusReport{
		Stack:       stack,
		AllHealthy:  observer.AllHealthy(descs, observations),
		GeneratedAt: time.Now().UTC(),
	}
	for _, obs := range observations {
		report.Services = append(report.Services, ServiceReport{
			Service:    obs.Service,
			Role:       roles[obs.Service],
			State:      string(obs.State),
			Probe:      probes[obs.Service],
			Detail:     obs.Detail,
			ObservedAt: obs.ObservedAt,
		})
	}
	return report
}

// BackupSummary is the list view of one backup manifest.
type BackupSummary struct {
	ID         string    `json:"id"`
	Tier       string    `json:"tier"`
	CreatedAt  time.Time `json:"created_at"`
	SizeBytes  int64     `json:"size_bytes"`
	Artifacts  []string  `json:"artifacts"`
	Consistent bool      `json:"consistent"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// NewBackupSummary converts a manifest to its list view.
func NewBackupSummary(m *backup.Manifest) BackupSummary {
	return BackupSummary{
		ID:         m.ID,
		Tier:       string(m.Tier),
		CreatedAt:  m.CreatedAt,
		SizeBytes:  m.SizeBytes,
		Artifacts:  m.Artifacts,
		Consistent: m.Consistent,
		Warnings:   m.Warnings,
	}
}
