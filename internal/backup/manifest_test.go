package backup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManifest(dir string) *Manifest {
	return &Manifest{
		ID:           "b2f1c7d4-0000-0000-0000-000000000000",
		CreatedAt:    time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
		Tier:         TierFull,
		Artifacts:    []string{ArtifactDatabase, ArtifactConfig, ArtifactMedia},
		SizeBytes:    1 << 20,
		Consistent:   true,
		ConfigCommit: "2f5a81",
		ArchivePath:  dir,
		Warnings:     []string{"database dump produced empty output"},
	}
}

func TestManifest_Has(t *testing.T) {
	m := sampleManifest("")
	assert.True(t, m.Has(ArtifactMedia))

	quick := &Manifest{Tier: TierQuick, Artifacts: []string{ArtifactDatabase, ArtifactConfig}}
	assert.False(t, quick.Has(ArtifactMedia))
}

func TestManifest_RecordRoundTrip(t *testing.T) {
	m := sampleManifest("/var/backups/x")

	rec, err := m.Record()
	require.NoError(t, err)
	assert.Equal(t, m.ID, rec.ID)
	assert.Equal(t, "full", rec.Tier)

	back, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestManifest_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	m := sampleManifest(dir)
	require.NoError(t, m.Write())

	read, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m, read)
	assert.FileExists(t, filepath.Join(dir, ManifestFile))
}

func TestReadManifest_MissingFile(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	require.Error(t, err)
}
