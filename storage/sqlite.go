package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"election_watch/models"
)

// Fixed-width so lexicographic ordering of stored timestamps matches
// chronological ordering inside SQL (MAX, equality).
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

const dateLayout = "2006-01-02"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ballots (
		ballot_id TEXT NOT NULL,
		run_timestamp DATETIME NOT NULL,
		name TEXT,
		poll_open_date TEXT,
		known_candidates BIGINT,
		locked BOOLEAN CHECK (locked IN (0, 1)),
		sopn_published TEXT,
		has_sopn BOOLEAN CHECK (has_sopn IN (0, 1)),
		url TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS ballots_run_timestamp_ballot_id_unique
	ON ballots (run_timestamp, ballot_id);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		ballots_found INTEGER
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) LatestRunTimestamp(ctx context.Context) (*time.Time, error) {
	var ts sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(run_timestamp) FROM ballots`).Scan(&ts)
	if err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}

	t, err := time.Parse(sqliteTimeLayout, ts.String)
	if err != nil {
		return nil, fmt.Errorf("parse run timestamp %q: %w", ts.String, err)
	}
	return &t, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, timestamp time.Time, ballots []models.Ballot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO ballots
			(ballot_id, run_timestamp, name, poll_open_date, known_candidates, locked, sopn_published, has_sopn, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := encodeTime(timestamp)
	for _, b := range ballots {
		var sopnPublished *string
		if b.SopnPublished != nil {
			d := b.SopnPublished.Format(dateLayout)
			sopnPublished = &d
		}
		_, err := stmt.ExecContext(ctx,
			b.BallotID, ts, b.Name, b.PollOpenDate.Format(dateLayout),
			b.KnownCandidates, b.Locked, sopnPublished, b.HasSopn, b.URL)
		if err != nil {
			return fmt.Errorf("save ballot %s: %w", b.BallotID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) BallotsForRun(ctx context.Context, timestamp time.Time) ([]models.Ballot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ballot_id, name, poll_open_date, known_candidates, locked, sopn_published, has_sopn, url
		FROM ballots WHERE run_timestamp = ?`, encodeTime(timestamp))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ballots []models.Ballot
	for rows.Next() {
		var b models.Ballot
		var pollDate string
		var sopnPublished sql.NullString
		if err := rows.Scan(&b.BallotID, &b.Name, &pollDate, &b.KnownCandidates,
			&b.Locked, &sopnPublished, &b.HasSopn, &b.URL); err != nil {
			return nil, err
		}
		b.RunTimestamp = timestamp
		b.PollOpenDate, err = time.Parse(dateLayout, pollDate)
		if err != nil {
			return nil, fmt.Errorf("parse poll_open_date %q: %w", pollDate, err)
		}
		if sopnPublished.Valid {
			d, err := time.Parse(dateLayout, sopnPublished.String)
			if err != nil {
				return nil, fmt.Errorf("parse sopn_published %q: %w", sopnPublished.String, err)
			}
			b.SopnPublished = &d
		}
		ballots = append(ballots, b)
	}
	return ballots, rows.Err()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, ballots_found)
		VALUES (?, ?, ?, 0)`,
		run.ID.String(), encodeTime(run.StartedAt), run.Status)
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *models.Run) error {
	var finished *string
	if run.FinishedAt != nil {
		f := encodeTime(*run.FinishedAt)
		finished = &f
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, ballots_found = ?
		WHERE id = ?`,
		finished, run.Status, run.BallotsFound, run.ID.String())
	return err
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
