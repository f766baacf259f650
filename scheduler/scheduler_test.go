package scheduler

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"election_watch/digest"
	"election_watch/models"
	"election_watch/notify"
)

type fakeStore struct {
	latest *time.Time

	savedTimestamp *time.Time
	savedBallots   []models.Ballot
	replayedRun    *time.Time
	replayBallots  []models.Ballot
	runsCreated    int
	runsFinished   []models.RunStatus
}

func (f *fakeStore) LatestRunTimestamp(ctx context.Context) (*time.Time, error) {
	return f.latest, nil
}

func (f *fakeStore) SaveRun(ctx context.Context, timestamp time.Time, ballots []models.Ballot) error {
	f.savedTimestamp = &timestamp
	f.savedBallots = ballots
	return nil
}

func (f *fakeStore) BallotsForRun(ctx context.Context, timestamp time.Time) ([]models.Ballot, error) {
	f.replayedRun = &timestamp
	return f.replayBallots, nil
}

func (f *fakeStore) CreateRun(ctx context.Context, run *models.Run) error {
	f.runsCreated++
	return nil
}

func (f *fakeStore) FinishRun(ctx context.Context, run *models.Run) error {
	f.runsFinished = append(f.runsFinished, run.Status)
	return nil
}

func (f *fakeStore) Close() error { return nil }

type fakeAggregator struct {
	calls   int
	ballots []models.Ballot
	err     error
}

func (f *fakeAggregator) Aggregate(ctx context.Context, now time.Time) ([]models.Ballot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Ballot, len(f.ballots))
	copy(out, f.ballots)
	for i := range out {
		out[i].RunTimestamp = now
	}
	return out, nil
}

func newTestGate(store *fakeStore, agg *fakeAggregator, now time.Time) *Gate {
	formatter := digest.New(rand.New(rand.NewSource(1)))
	gate := NewGate(store, agg, formatter, notify.New("", nil))
	gate.now = func() time.Time { return now }
	return gate
}

func TestGate_FirstEverRunScrapes(t *testing.T) {
	store := &fakeStore{}
	agg := &fakeAggregator{ballots: []models.Ballot{{BallotID: "a", PollOpenDate: time.Now()}}}
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	if err := newTestGate(store, agg, now).Run(context.Background(), false); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if agg.calls != 1 {
		t.Fatalf("expected 1 aggregation, got %d", agg.calls)
	}
	if store.savedTimestamp == nil || !store.savedTimestamp.Equal(now) {
		t.Fatalf("expected run saved at %s, got %v", now, store.savedTimestamp)
	}
	if store.runsCreated != 1 {
		t.Fatalf("expected 1 run record, got %d", store.runsCreated)
	}
	if len(store.runsFinished) != 1 || store.runsFinished[0] != models.RunStatusCompleted {
		t.Fatalf("expected a completed run record, got %v", store.runsFinished)
	}
	if store.replayedRun != nil {
		t.Fatalf("fresh run must not replay")
	}
}

func TestGate_FreshSnapshotReplays(t *testing.T) {
	last := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		latest:        &last,
		replayBallots: []models.Ballot{{BallotID: "a", PollOpenDate: last}},
	}
	agg := &fakeAggregator{}
	now := last.Add(6 * 24 * time.Hour)

	if err := newTestGate(store, agg, now).Run(context.Background(), false); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if agg.calls != 0 {
		t.Fatalf("gate must not aggregate within the freshness window, got %d calls", agg.calls)
	}
	if store.replayedRun == nil || !store.replayedRun.Equal(last) {
		t.Fatalf("expected replay of run %s, got %v", last, store.replayedRun)
	}
}

func TestGate_StaleSnapshotScrapes(t *testing.T) {
	last := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{latest: &last}
	agg := &fakeAggregator{}
	now := last.Add(8 * 24 * time.Hour)

	if err := newTestGate(store, agg, now).Run(context.Background(), false); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if agg.calls != 1 {
		t.Fatalf("expected aggregation past the freshness window, got %d calls", agg.calls)
	}
	if store.replayedRun != nil {
		t.Fatalf("stale run must not replay")
	}
}

func TestGate_ForceBypassesFreshness(t *testing.T) {
	last := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{latest: &last}
	agg := &fakeAggregator{}
	now := last.Add(time.Hour)

	if err := newTestGate(store, agg, now).Run(context.Background(), true); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if agg.calls != 1 {
		t.Fatalf("force must aggregate regardless of freshness, got %d calls", agg.calls)
	}
}

func TestGate_AggregatorErrorPropagates(t *testing.T) {
	store := &fakeStore{}
	agg := &fakeAggregator{err: context.DeadlineExceeded}
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	err := newTestGate(store, agg, now).Run(context.Background(), false)
	if err == nil {
		t.Fatalf("expected the feed failure to propagate")
	}
	if store.savedTimestamp != nil {
		t.Fatalf("failed run must not persist ballots")
	}
	if len(store.runsFinished) != 1 || store.runsFinished[0] != models.RunStatusFailed {
		t.Fatalf("expected a failed run record, got %v", store.runsFinished)
	}
}
