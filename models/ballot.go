package models

import "time"

// Ballot is a snapshot of one contestable post on one polling day, as seen
// by a single aggregation run. Records are built once per run and never
// mutated afterwards.
type Ballot struct {
	BallotID        string     `json:"ballot_id" db:"ballot_id"`
	RunTimestamp    time.Time  `json:"run_timestamp" db:"run_timestamp"`
	Name            string     `json:"name" db:"name"`
	PollOpenDate    time.Time  `json:"poll_open_date" db:"poll_open_date"`
	KnownCandidates int        `json:"known_candidates" db:"known_candidates"`
	Locked          bool       `json:"locked" db:"locked"`
	SopnPublished   *time.Time `json:"sopn_published" db:"sopn_published"` // predicted publication date, nil when no rule matched
	HasSopn         bool       `json:"has_sopn" db:"has_sopn"`             // statement document actually uploaded
	URL             string     `json:"url" db:"url"`
}
