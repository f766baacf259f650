package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the bookkeeping record for one aggregation pass. StartedAt doubles
// as the partition key for the ballots the run produced.
type Run struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at" db:"finished_at"`
	Status       RunStatus  `json:"status" db:"status"`
	BallotsFound int        `json:"ballots_found" db:"ballots_found"`
}

func NewRun(startedAt time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		StartedAt: startedAt,
		Status:    RunStatusRunning,
	}
}
