// Package app wires the application components together and runs the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"docstack/internal/alert"
	"docstack/internal/backup"
	"docstack/internal/cli"
	"docstack/internal/cli/commands"
	"docstack/internal/config"
	"docstack/internal/container"
	"docstack/internal/db"
	"docstack/internal/logger"
	"docstack/internal/monitor"
	"docstack/internal/observer"
	"docstack/internal/orchestrator"
	"docstack/internal/server"
)

// App represents the main application
type App struct {
	Config  *config.Manager
	Runtime *container.ComposeRuntime
	DB      *db.DB
	CLI     *cli.Manager
}

// New creates a new application instance
func New() *App {
	return &App{}
}

// Run executes the CLI with the given arguments
func (a *App) Run(args []string) error {
	return a.RunWithContext(context.Background(), args)
}

// RunWithContext assembles the components and executes the CLI. The database
// connection is closed when the command finishes.
func (a *App) RunWithContext(ctx context.Context, args []string) error {
	cfg := config.New()
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.Config = cfg

	if cfg.File.Monitor.LogFile != "" {
		logger.SetFile(cfg.File.Monitor.LogFile)
	}

	database, err := db.New(db.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	a.DB = database
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	executor := &container.DefaultCommandExecutor{}
	runtime := container.NewComposeRuntime(cfg.File.Stack.ComposeFile, cfg.File.Stack.Project, executor)
	a.Runtime = runtime

	obs := observer.New(runtime)
	descs := observer.Descriptors(cfg)

	orch := orchestrator.New(obs, runtime)
	orch.SetInterval(time.Duration(cfg.File.Readiness.IntervalSeconds) * time.Second)

	alertRepo := db.NewAlertRepository(database)
	backupRepo := db.NewBackupRepository(database)
	tracker := db.NewHealthStateRepository(database)

	dispatcher := alert.NewDispatcher(cfg.File.Alerts, alertRepo)
	daemon := monitor.New(obs, descs, tracker, dispatcher, cfg.File.Monitor.FailureThreshold, cfg.File.Stack.Name)
	backups := backup.NewController(cfg, runtime, orch, descs, backupRepo, executor)
	srv := server.New(cfg, obs, descs, backupRepo, alertRepo)

	a.CLI = cli.New(&commands.Deps{
		Config:       cfg,
		Runtime:      runtime,
		Observer:     obs,
		Descriptors:  descs,
		Orchestrator: orch,
		Monitor:      daemon,
		Dispatcher:   dispatcher,
		Backups:      backups,
		BackupRepo:   backupRepo,
		AlertRepo:    alertRepo,
		Server:       srv,
	})

	if len(args) == 0 {
		return a.CLI.ExecuteWithContext(ctx, []string{"--help"})
	}
	return a.CLI.ExecuteWithContext(ctx, args)
}
