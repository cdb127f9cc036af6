package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// HealthStateRepository persists the monitor's failure tracker. All updates
// run read-modify-write inside one transaction, so overlapping scheduler
// invocations serialize on the row instead of racing.
type HealthStateRepository struct {
	db *DB
}

// NewHealthStateRepository creates a repository over the given database
func NewHealthStateRepository(db *DB) *HealthStateRepository {
	return &HealthStateRepository{db: db}
}

// Get returns the current tracker state
func (r *HealthStateRepository) Get(ctx context.Context) (*HealthState, error) {
	var state HealthState
	if err := r.db.GetContext(ctx, &state, `SELECT id, consecutive_failures, last_status, updated_at FROM health_state WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("failed to load health state: %w", err)
	}
	return &state, nil
}

// Update applies fn to the tracker state atomically and returns the state
// fn produced.
func (r *HealthStateRepository) Update(ctx context.Context, fn func(state *HealthState)) (*HealthState, error) {
	var updated *HealthState
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var state HealthState
		if err := tx.GetContext(ctx, &state, `SELECT id, consecutive_failures, last_status, updated_at FROM health_state WHERE id = 1`); err != nil {
			return fmt.Errorf("failed to load health state: %w", err)
		}

		fn(&state)
		state.UpdatedAt = time.Now().UTC()

		if _, err := tx.ExecContext(ctx,
			`UPDATE health_state SET consecutive_failures = ?, last_status = ?, updated_at = ? WHERE id = 1`,
			state.ConsecutiveFailures, state.LastStatus, state.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to save health state: %w", err)
		}

		updated = &state
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
