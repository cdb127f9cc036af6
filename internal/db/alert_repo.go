package db

import (
	"context"
	"fmt"
)

// AlertRepository is the append-only audit log of dispatched alert events.
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a repository over the given database
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Append records one dispatched event
func (r *AlertRepository) Append(ctx context.Context, rec *AlertRecord) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_log (severity, title, body, host, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Severity, rec.Title, rec.Body, rec.Host, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append alert record: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// Recent returns the most recent records, newest first
func (r *AlertRepository) Recent(ctx context.Context, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []AlertRecord
	if err := r.db.SelectContext(ctx, &records,
		`SELECT id, severity, title, body, host, created_at FROM alert_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	); err != nil {
		return nil, fmt.Errorf("failed to list alert records: %w", err)
	}
	return records, nil
}
