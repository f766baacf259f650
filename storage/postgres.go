package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"election_watch/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ballots (
		ballot_id TEXT NOT NULL,
		run_timestamp TIMESTAMPTZ NOT NULL,
		name TEXT,
		poll_open_date DATE,
		known_candidates BIGINT,
		locked BOOLEAN,
		sopn_published DATE,
		has_sopn BOOLEAN,
		url TEXT,
		PRIMARY KEY (run_timestamp, ballot_id)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		status TEXT,
		ballots_found INTEGER
	);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) LatestRunTimestamp(ctx context.Context) (*time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(run_timestamp) FROM ballots`).Scan(&ts)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, timestamp time.Time, ballots []models.Ballot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, b := range ballots {
		_, err := tx.Exec(ctx, `
			INSERT INTO ballots
				(ballot_id, run_timestamp, name, poll_open_date, known_candidates, locked, sopn_published, has_sopn, url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (run_timestamp, ballot_id) DO NOTHING`,
			b.BallotID, timestamp, b.Name, b.PollOpenDate, b.KnownCandidates,
			b.Locked, b.SopnPublished, b.HasSopn, b.URL)
		if err != nil {
			return fmt.Errorf("save ballot %s: %w", b.BallotID, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) BallotsForRun(ctx context.Context, timestamp time.Time) ([]models.Ballot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ballot_id, name, poll_open_date, known_candidates, locked, sopn_published, has_sopn, url
		FROM ballots WHERE run_timestamp = $1`, timestamp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ballots []models.Ballot
	for rows.Next() {
		var b models.Ballot
		if err := rows.Scan(&b.BallotID, &b.Name, &b.PollOpenDate, &b.KnownCandidates,
			&b.Locked, &b.SopnPublished, &b.HasSopn, &b.URL); err != nil {
			return nil, err
		}
		b.RunTimestamp = timestamp
		ballots = append(ballots, b)
	}
	return ballots, rows.Err()
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, started_at, status, ballots_found)
		VALUES ($1, $2, $3, 0)`,
		run.ID, run.StartedAt, run.Status)
	return err
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *models.Run) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE runs SET finished_at = $1, status = $2, ballots_found = $3
		WHERE id = $4`,
		run.FinishedAt, run.Status, run.BallotsFound, run.ID)
	return err
}
