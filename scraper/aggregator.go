package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"election_watch/config"
	"election_watch/elections"
	"election_watch/models"
	"election_watch/sopn"
)

// Aggregator walks the paginated elections feed, cross-references the
// candidates API per ballot, and assembles the run's snapshot. The fixed
// inter-request delays bound the request rate against the shared upstream;
// keep them if this ever goes concurrent.
type Aggregator struct {
	client    *elections.Client
	predictor *sopn.Predictor

	pageSize    int
	pageDelay   time.Duration
	detailDelay time.Duration

	sleep func(time.Duration) // injectable for tests
}

func New(client *elections.Client, predictor *sopn.Predictor, cfg config.ScraperConfig) *Aggregator {
	return &Aggregator{
		client:      client,
		predictor:   predictor,
		pageSize:    cfg.PageSize,
		pageDelay:   cfg.PageDelay,
		detailDelay: cfg.DetailDelay,
		sleep:       time.Sleep,
	}
}

// Aggregate builds the full snapshot for a run starting at now. The in-scope
// window is one calendar month forward of now; ballots polling on or after
// the cutoff are skipped. A feed page failure aborts the run; a failed
// detail lookup only downgrades that ballot to a placeholder.
func (a *Aggregator) Aggregate(ctx context.Context, now time.Time) ([]models.Ballot, error) {
	cutoff := now.AddDate(0, 1, 0)
	var ballots []models.Ballot

	pageURL := a.client.FirstPageURL(a.pageSize)
	for pageURL != "" {
		log.Printf("Fetching %s", pageURL)
		items, next, err := a.client.ListElections(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("list elections: %w", err)
		}

		for _, item := range items {
			if !item.IsBallot() || !elections.IsByElection(item.ElectionID) {
				continue
			}
			if !item.PollOpenDate.Before(cutoff) {
				continue
			}

			ballots = append(ballots, a.buildBallot(ctx, now, item))
			a.sleep(a.detailDelay)
		}

		a.sleep(a.pageDelay)
		pageURL = next
	}

	log.Printf("Aggregated %d ballots", len(ballots))
	return ballots, nil
}

func (a *Aggregator) buildBallot(ctx context.Context, now time.Time, item elections.Item) models.Ballot {
	b := models.Ballot{
		BallotID:     item.ElectionID,
		RunTimestamp: now,
		Name:         item.Title,
		PollOpenDate: item.PollOpenDate,
		URL:          a.client.BallotURL(item.ElectionID),
	}

	jurisdiction := sopn.JurisdictionFromTerritory(item.TerritoryCode)
	if predicted, ok := a.predictor.Predict(item.ElectionID, jurisdiction); ok {
		b.SopnPublished = &predicted
	}

	detail, err := a.client.GetBallotDetail(ctx, item.ElectionID)
	if err != nil {
		log.Printf("Detail fetch for %s failed, using placeholder: %v", item.ElectionID, err)
		detail = nil
	}
	if detail != nil {
		b.KnownCandidates = detail.CandidateCount
		b.Locked = detail.Locked
		b.HasSopn = detail.HasSopn
		if detail.PostLabel != "" {
			b.Name = fmt.Sprintf("%s - %s", item.Title, detail.PostLabel)
		}
	}

	return b
}
