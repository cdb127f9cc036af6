// Package commands implements the docstack subcommands.
package commands

import (
	"context"

	"docstack/internal/alert"
	"docstack/internal/backup"
	"docstack/internal/config"
	"docstack/internal/container"
	"docstack/internal/db"
	"docstack/internal/monitor"
	"docstack/internal/observer"
	"docstack/internal/orchestrator"
	"docstack/internal/server"
)

// Deps carries the assembled application components into the commands.
type Deps struct {
	Config       *config.Manager
	Runtime      *container.ComposeRuntime
	Observer     *observer.Observer
	Descriptors  []observer.Descriptor
	Orchestrator *orchestrator.Orchestrator
	Monitor      *monitor.Daemon
	Dispatcher   *alert.Dispatcher
	Backups      *backup.Controller
	BackupRepo   *db.BackupRepository
	AlertRepo    *db.AlertRepository
	Server       *server.Server
}

// Budgets returns the configured readiness budgets
func (d *Deps) Budgets() orchestrator.Budgets {
	r := d.Config.File.Readiness
	return orchestrator.Budgets{
		Running: r.RunningAttempts,
		Healthy: r.HealthyAttempts,
		Verify:  r.VerifyAttempts,
	}
}

// AwaitReady runs a readiness session with the configured budgets
func (d *Deps) AwaitReady(ctx context.Context) *orchestrator.Report {
	cfg := d.Config.File
	return d.Orchestrator.AwaitReady(ctx, d.Descriptors, cfg.Stack.PrimaryService, cfg.Readiness.VerifyCommand, d.Budgets())
}
