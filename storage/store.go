package storage

import (
	"context"
	"time"

	"election_watch/models"
)

// Store is the snapshot persistence contract: one row per
// (run timestamp, ballot), plus run bookkeeping.
type Store interface {
	// LatestRunTimestamp returns nil when no run has ever been persisted.
	LatestRunTimestamp(ctx context.Context) (*time.Time, error)
	// SaveRun persists the full set for one run. Re-saving the same
	// (timestamp, ballot_id) pairs is a no-op, not an error.
	SaveRun(ctx context.Context, timestamp time.Time, ballots []models.Ballot) error
	// BallotsForRun replays a prior run's output field-for-field.
	BallotsForRun(ctx context.Context, timestamp time.Time) ([]models.Ballot, error)

	CreateRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, run *models.Run) error

	Close() error
}
