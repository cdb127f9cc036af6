// Package backup implements the stop-snapshot-restart protocol around
// data-mutating operations on the stack.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docstack/internal/db"
)

// Tier selects how much a snapshot captures.
type Tier string

const (
	// TierQuick captures database and config live; media is skipped so no
	// service has to stop
	TierQuick Tier = "quick"
	// TierFull additionally captures media files with the primary service
	// stopped for consistency
	TierFull Tier = "full"
)

// Artifact kinds a manifest can list.
const (
	ArtifactDatabase = "database"
	ArtifactConfig   = "config"
	ArtifactMedia    = "media"
)

// Archive file names inside a backup directory.
const (
	DatabaseDumpFile = "database.sql"
	ConfigArchive    = "config.tar.gz"
	MediaArchive     = "media.tar.gz"
	ManifestFile     = "manifest.json"
)

// Manifest describes exactly what one backup captured. Written once at
// backup completion, never mutated.
type Manifest struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Tier         Tier      `json:"tier"`
	Artifacts    []string  `json:"artifacts"`
	SizeBytes    int64     `json:"size_bytes"`
	Consistent   bool      `json:"consistent"` // primary service was stopped during media capture
	ConfigCommit string    `json:"config_commit,omitempty"`
	ArchivePath  string    `json:"archive_path"`
	Warnings     []string  `json:"warnings,omitempty"`
}

// Has reports whether the manifest lists an artifact kind
func (m *Manifest) Has(artifact string) bool {
	for _, a := range m.Artifacts {
		if a == artifact {
			return true
		}
	}
	return false
}

// Record converts the manifest to its database row
func (m *Manifest) Record() (*db.BackupRecord, error) {
	artifacts, err := json.Marshal(m.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifacts: %w", err)
	}
	warnings := []string{}
	if m.Warnings != nil {
		warnings = m.Warnings
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode warnings: %w", err)
	}
	return &db.BackupRecord{
		ID:           m.ID,
		CreatedAt:    m.CreatedAt,
		Tier:         string(m.Tier),
		Artifacts:    string(artifacts),
		SizeBytes:    m.SizeBytes,
		Consistent:   m.Consistent,
		ConfigCommit: m.ConfigCommit,
		ArchivePath:  m.ArchivePath,
		Warnings:     string(warningsJSON),
	}, nil
}

// FromRecord converts a database row back to a manifest
func FromRecord(rec *db.BackupRecord) (*Manifest, error) {
	m := &Manifest{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt,
		Tier:         Tier(rec.Tier),
		SizeBytes:    rec.SizeBytes,
		Consistent:   rec.Consistent,
		ConfigCommit: rec.ConfigCommit,
		ArchivePath:  rec.ArchivePath,
	}
	if err := json.Unmarshal([]byte(rec.Artifacts), &m.Artifacts); err != nil {
		return nil, fmt.Errorf("failed to decode artifacts: %w", err)
	}
	if rec.Warnings != "" {
		if err := json.Unmarshal([]byte(rec.Warnings), &m.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings: %w", err)
		}
	}
	return m, nil
}

// Write stores the manifest beside the archive so a restore can work from
// the backup directory alone.
func (m *Manifest) Write() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(m.ArchivePath, ManifestFile), data, 0644)
}

// ReadManifest loads a manifest from a backup directory
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
