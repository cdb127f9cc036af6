package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// BackupRepository persists backup manifests. Manifests are write-once: a new
// backup inserts a new row, nothing is updated in place.
type BackupRepository struct {
	db *DB
}

// NewBackupRepository creates a repository over the given database
func NewBackupRepository(db *DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Insert stores a completed manifest
func (r *BackupRepository) Insert(ctx context.Context, rec *BackupRecord) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_manifests (id, created_at, tier, artifacts, size_bytes, consistent, config_commit, archive_path, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt, rec.Tier, rec.Artifacts, rec.SizeBytes, rec.Consistent, rec.ConfigCommit, rec.ArchivePath, rec.Warnings,
	); err != nil {
		return fmt.Errorf("failed to insert backup manifest: %w", err)
	}
	return nil
}

// Get returns one manifest by ID, or nil when it does not exist
func (r *BackupRepository) Get(ctx context.Context, id string) (*BackupRecord, error) {
	var rec BackupRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT id, created_at, tier, artifacts, size_bytes, consistent, config_commit, archive_path, warnings
		 FROM backup_manifests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load backup manifest: %w", err)
	}
	return &rec, nil
}

// List returns all manifests, newest first
func (r *BackupRepository) List(ctx context.Context) ([]BackupRecord, error) {
	var records []BackupRecord
	if err := r.db.SelectContext(ctx, &records,
		`SELECT id, created_at, tier, artifacts, size_bytes, consistent, config_commit, archive_path, warnings
		 FROM backup_manifests ORDER BY created_at DESC`,
	); err != nil {
		return nil, fmt.Errorf("failed to list backup manifests: %w", err)
	}
	return records, nil
}

// ListByTier returns manifests of one tier, newest first
func (r *BackupRepository) ListByTier(ctx context.Context, tier string) ([]BackupRecord, error) {
	var records []BackupRecord
	if err := r.db.SelectContext(ctx, &records,
		`SELECT id, created_at, tier, artifacts, size_bytes, consistent, config_commit, archive_path, warnings
		 FROM backup_manifests WHERE tier = ? ORDER BY created_at DESC`, tier,
	); err != nil {
		return nil, fmt.Errorf("failed to list backup manifests: %w", err)
	}
	return records, nil
}

// Delete removes a manifest row after its archive has been pruned
func (r *BackupRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM backup_manifests WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete backup manifest: %w", err)
	}
	return nil
}
