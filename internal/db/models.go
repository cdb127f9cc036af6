package db

import "time"

// HealthState is the single-row outage tracker shared by successive
// monitor invocations.
type HealthState struct {
	ID                  int       `db:"id"`
	ConsecutiveFailures int       `db:"consecutive_failures"`
	LastStatus          string    `db:"last_status"` // "healthy" or "unhealthy"
	UpdatedAt           time.Time `db:"updated_at"`
}

// AlertRecord is one row of the append-only alert audit log.
type AlertRecord struct {
	ID        int64     `db:"id"`
	Severity  string    `db:"severity"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Host      string    `db:"host"`
	CreatedAt time.Time `db:"created_at"`
}

// BackupRecord is the persisted form of a backup manifest.
type BackupRecord struct {
	ID           string    `db:"id"`
	CreatedAt    time.Time `db:"created_at"`
	Tier         string    `db:"tier"`
	Artifacts    string    `db:"artifacts"` // JSON array of artifact kinds
	SizeBytes    int64     `db:"size_bytes"`
	Consistent   bool      `db:"consistent"`
	ConfigCommit string    `db:"config_commit"`
	ArchivePath  string    `db:"archive_path"`
	Warnings     string    `db:"warnings"` // JSON array of strings
}
