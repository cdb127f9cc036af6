package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"docstack/internal/config"
	"docstack/internal/container"
	"docstack/internal/db"
	"docstack/internal/errors"
	"docstack/internal/logger"
	"docstack/internal/metrics"
	"docstack/internal/observer"
	"docstack/internal/orchestrator"
)

// databaseReadyAttempts bounds the wait for PostgreSQL to accept connections
// after a restore starts it.
const databaseReadyAttempts = 30

// Controller orchestrates consistent snapshots and restores of the stack.
type Controller struct {
	cfg       *config.Manager
	runtime   *container.ComposeRuntime
	orch      *orchestrator.Orchestrator
	descs     []observer.Descriptor
	manifests *db.BackupRepository
	executor  container.CommandExecutor
	history   *ConfigHistory
	interval  time.Duration
}

// NewController creates a controller over the given runtime and repositories.
func NewController(cfg *config.Manager, runtime *container.ComposeRuntime, orch *orchestrator.Orchestrator, descs []observer.Descriptor, manifests *db.BackupRepository, executor container.CommandExecutor) *Controller {
	if executor == nil {
		executor = &container.DefaultCommandExecutor{}
	}
	return &Controller{
		cfg:       cfg,
		runtime:   runtime,
		orch:      orch,
		descs:     descs,
		manifests: manifests,
		executor:  executor,
		history:   NewConfigHistory(filepath.Join(cfg.File.Backup.Directory, "config-history")),
		interval:  time.Second,
	}
}

// SetInterval overrides the database-ready poll cadence. Tests use this.
func (c *Controller) SetInterval(d time.Duration) {
	c.interval = d
}

// Snapshot captures a backup of the stack. Database dump and config are
// always captured live; a Full snapshot additionally stops the primary
// service while archiving media, so no concurrent write can touch the files
// being read. Partial failures become manifest warnings, not aborts.
func (c *Controller) Snapshot(ctx context.Context, tier Tier) (*Manifest, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	dir := filepath.Join(c.cfg.File.Backup.Directory,
		fmt.Sprintf("%s-%s-%s", now.Format("20060102-150405"), tier, id[:8]))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrBackupFailed, "cannot create backup directory")
	}

	manifest := &Manifest{
		ID:          id,
		CreatedAt:   now,
		Tier:        tier,
		ArchivePath: dir,
	}

	log := logger.WithFields(logger.Fields{"backup": id[:8], "tier": tier})
	log.Info("Starting snapshot")

	c.captureDatabase(ctx, dir, manifest, log)
	c.captureConfig(ctx, dir, manifest, log)

	if tier == TierFull {
		c.captureMedia(ctx, dir, manifest, log)
	}

	manifest.SizeBytes = dirSize(dir)

	if err := manifest.Write(); err != nil {
		return nil, errors.Wrap(err, errors.ErrBackupFailed, "cannot write manifest")
	}
	rec, err := manifest.Record()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrBackupFailed, "cannot encode manifest")
	}
	if err := c.manifests.Insert(ctx, rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrBackupFailed, "cannot persist manifest")
	}

	metrics.BackupsTotal.WithLabelValues(string(tier)).Inc()
	log.WithFields(logger.Fields{
		"size_bytes": manifest.SizeBytes,
		"artifacts":  strings.Join(manifest.Artifacts, ","),
		"warnings":   len(manifest.Warnings),
	}).Info("Snapshot complete")
	return manifest, nil
}

// captureDatabase dumps the application database live. An empty or failed
// dump is a warning; partial backups beat none, and the manifest makes the
// gap visible.
func (c *Controller) captureDatabase(ctx context.Context, dir string, manifest *Manifest, log *logrus.Entry) {
	dbCfg := c.cfg.File.Database
	output, err := c.runtime.Exec(ctx, dbCfg.Service, "pg_dump", "-U", dbCfg.User, "-d", dbCfg.Name)
	if err != nil {
		manifest.Warnings = append(manifest.Warnings, fmt.Sprintf("database dump failed: %v", err))
		log.WithError(err).Warn("Database dump failed")
		return
	}
	if len(output) == 0 {
		manifest.Warnings = append(manifest.Warnings, "database dump produced empty output")
		log.Warn("Database dump produced empty output")
		return
	}
	if err := os.WriteFile(filepath.Join(dir, DatabaseDumpFile), output, 0600); err != nil {
		manifest.Warnings = append(manifest.Warnings, fmt.Sprintf("cannot write database dump: %v", err))
		return
	}
	manifest.Artifacts = append(manifest.Artifacts, ArtifactDatabase)
}

// captureConfig archives the deployment config and commits it to the config
// history repo.
func (c *Controller) captureConfig(ctx context.Context, dir string, manifest *Manifest, log *logrus.Entry) {
	configDir := c.cfg.File.Backup.ConfigDir
	if configDir == "" {
		manifest.Warnings = append(manifest.Warnings, "no config directory configured")
		return
	}

	if err := c.tar(ctx, configDir, filepath.Join(dir, ConfigArchive)); err != nil {
		manifest.Warnings = append(manifest.Warnings, fmt.Sprintf("config archive failed: %v", err))
		log.WithError(err).Warn("Config archive failed")
		return
	}
	manifest.Artifacts = append(manifest.Artifacts, ArtifactConfig)

	commit, err := c.history.Commit(configDir, fmt.Sprintf("snapshot %s", manifest.ID[:8]))
	if err != nil {
		manifest.Warnings = append(manifest.Warnings, fmt.Sprintf("config history commit failed: %v", err))
		log.WithError(err).Warn("Config history commit failed")
		return
	}
	manifest.ConfigCommit = commit
}

// captureMedia stops the primary service, archives the media files, and
// restarts it. The restart runs even when the archive step fails.
func (c *Controller) captureMedia(ctx context.Context, dir string, manifest *Manifest, log *logrus.Entry) {
	mediaPath := c.cfg.File.Backup.MediaPath
	if mediaPath == "" {
		manifest.Warnings = append(manifest.Warnings, "no media path configured; media skipped")
		return
	}

	primary := c.cfg.File.Stack.PrimaryService
	if err := c.runtime.Stop(ctx, primary); err != nil {
		manifest.Warnings = append(manifest.Warnings, fmt.Sprintf("cannot stop %s; media captured without consistency guarantee: %v", primary, err))
		log.WithError(err).Warn("Cannot stop primary service before media capture")
	} else {
		manifest.Consistent = true
		defer func() {
			if err := c.runtime.Up(ctx, primary); err != nil {
				manifest.Warnings = append(manifest.Warnings, fmt.Sprintf("cannot restart %s after media capture: %v", primary, err))
				log.WithError(err).Error("Cannot restart primary service after media capture")
			}
		}()
	}

	if err := c.tar(ctx, mediaPath, filepath.Join(dir, MediaArchive)); err != nil {
		manifest.Warnings = append(manifest.Warnings, fmt.Sprintf("media archive failed: %v", err))
		log.WithError(err).Warn("Media archive failed")
		return
	}
	manifest.Artifacts = append(manifest.Artifacts, ArtifactMedia)
}

// Restore rebuilds the stack from a manifest: stop everything, put config
// and media back, bring up the database alone, replay the dump into a
// recreated database, then start the rest and wait for readiness.
func (c *Controller) Restore(ctx context.Context, manifest *Manifest) (*orchestrator.Report, error) {
	log := logger.WithField("backup", manifest.ID[:8])
	log.Info("Starting restore")

	if err := c.runtime.Stop(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrRestoreFailed, "cannot stop stack")
	}

	if manifest.Has(ArtifactConfig) {
		if err := c.untar(ctx, filepath.Join(manifest.ArchivePath, ConfigArchive), c.cfg.File.Backup.ConfigDir); err != nil {
			return nil, errors.Wrap(err, errors.ErrRestoreFailed, "cannot restore config")
		}
	}
	if manifest.Has(ArtifactMedia) {
		if err := c.untar(ctx, filepath.Join(manifest.ArchivePath, MediaArchive), c.cfg.File.Backup.MediaPath); err != nil {
			return nil, errors.Wrap(err, errors.ErrRestoreFailed, "cannot restore media")
		}
	}

	if manifest.Has(ArtifactDatabase) {
		if err := c.restoreDatabase(ctx, manifest); err != nil {
			return nil, err
		}
	} else {
		log.Warn("Manifest has no database dump; skipping database restore")
	}

	if err := c.runtime.Up(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrRestoreFailed, "cannot start stack")
	}

	budgets := orchestrator.Budgets{
		Running: c.cfg.File.Readiness.RunningAttempts,
		Healthy: c.cfg.File.Readiness.HealthyAttempts,
		Verify:  c.cfg.File.Readiness.VerifyAttempts,
	}
	report := c.orch.AwaitReady(ctx, c.descs, c.cfg.File.Stack.PrimaryService, c.cfg.File.Readiness.VerifyCommand, budgets)
	log.WithField("result", report.Result).Info("Restore complete")
	return report, nil
}

// restoreDatabase starts only the database service, waits until it accepts
// connections, recreates the application database, and replays the dump.
func (c *Controller) restoreDatabase(ctx context.Context, manifest *Manifest) error {
	dbCfg := c.cfg.File.Database

	if err := c.runtime.Up(ctx, dbCfg.Service); err != nil {
		return errors.Wrap(err, errors.ErrRestoreFailed, "cannot start database service")
	}
	if err := c.waitForDatabase(ctx); err != nil {
		return err
	}

	drop := fmt.Sprintf("DROP DATABASE IF EXISTS %q", dbCfg.Name)
	create := fmt.Sprintf("CREATE DATABASE %q OWNER %q", dbCfg.Name, dbCfg.User)
	if _, err := c.runtime.Exec(ctx, dbCfg.Service, "psql", "-U", dbCfg.User, "-d", "postgres", "-c", drop); err != nil {
		return errors.Wrap(err, errors.ErrRestoreFailed, "cannot drop database")
	}
	if _, err := c.runtime.Exec(ctx, dbCfg.Service, "psql", "-U", dbCfg.User, "-d", "postgres", "-c", create); err != nil {
		return errors.Wrap(err, errors.ErrRestoreFailed, "cannot create database")
	}

	dump, err := os.Open(filepath.Join(manifest.ArchivePath, DatabaseDumpFile))
	if err != nil {
		return errors.Wrap(err, errors.ErrRestoreFailed, "cannot open database dump")
	}
	defer dump.Close()

	if _, err := c.runtime.ExecInput(ctx, dbCfg.Service, dump, "psql", "-U", dbCfg.User, "-d", dbCfg.Name); err != nil {
		return errors.Wrap(err, errors.ErrRestoreFailed, "dump replay failed")
	}
	return nil
}

// waitForDatabase polls pg_isready with a bounded attempt budget
func (c *Controller) waitForDatabase(ctx context.Context) error {
	dbCfg := c.cfg.File.Database
	var lastErr error
	for attempt := 0; attempt < databaseReadyAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), errors.ErrCancelled, "restore interrupted")
			case <-time.After(c.interval):
			}
		}
		if _, err := c.runtime.Exec(ctx, dbCfg.Service, "pg_isready", "-U", dbCfg.User); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return errors.Wrap(lastErr, errors.ErrTimeout,
		fmt.Sprintf("database not ready after %d attempts", databaseReadyAttempts))
}

// Prune removes archives beyond the per-tier retention counts.
func (c *Controller) Prune(ctx context.Context) (int, error) {
	removed := 0
	for tier, keep := range map[string]int{
		string(TierQuick): c.cfg.File.Backup.KeepQuick,
		string(TierFull):  c.cfg.File.Backup.KeepFull,
	} {
		records, err := c.manifests.ListByTier(ctx, tier)
		if err != nil {
			return removed, err
		}
		for i := keep; i < len(records); i++ {
			rec := records[i]
			if rec.ArchivePath != "" {
				if err := os.RemoveAll(rec.ArchivePath); err != nil {
					logger.WithError(err).WithField("backup", rec.ID).Warn("Cannot remove backup archive")
					continue
				}
			}
			if err := c.manifests.Delete(ctx, rec.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// tar archives the contents of srcDir into destFile
func (c *Controller) tar(ctx context.Context, srcDir, destFile string) error {
	cmd := c.executor.CommandContext(ctx, "tar", "czf", destFile, "-C", srcDir, ".")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%v: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// untar extracts an archive into destDir
func (c *Controller) untar(ctx context.Context, srcFile, destDir string) error {
	if destDir == "" {
		return fmt.Errorf("no destination directory configured for %s", filepath.Base(srcFile))
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	cmd := c.executor.CommandContext(ctx, "tar", "xzf", srcFile, "-C", destDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%v: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// dirSize sums the file sizes beneath dir
func dirSize(dir string) int64 {
	var size int64
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
