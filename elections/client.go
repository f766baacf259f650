package elections

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Client wraps the two upstream APIs: the paginated upcoming-elections feed
// and the per-ballot candidates detail endpoint.
type Client struct {
	httpClient    *http.Client
	feedURL       string
	candidatesURL string
}

func NewClient(httpClient *http.Client, feedURL, candidatesURL string) *Client {
	return &Client{
		httpClient:    httpClient,
		feedURL:       feedURL,
		candidatesURL: strings.TrimRight(candidatesURL, "/"),
	}
}

// Item is one entry from the elections feed, validated at this boundary.
type Item struct {
	ElectionID    string
	Title         string
	PollOpenDate  time.Time
	GroupType     string // empty for an individual ballot
	TerritoryCode string
}

// IsBallot reports whether the item is an individual ballot rather than an
// aggregate election grouping.
func (i Item) IsBallot() bool {
	return i.GroupType == ""
}

// IsByElection reports whether a ballot identifier carries the reserved
// by-election path segment, e.g. local.worthing.marine.by.2026-03-05.
func IsByElection(electionID string) bool {
	for _, segment := range strings.Split(electionID, ".") {
		if segment == "by" {
			return true
		}
	}
	return false
}

// Detail holds the per-ballot candidate data returned by the candidates API.
type Detail struct {
	CandidateCount int
	Locked         bool
	HasSopn        bool
	PostLabel      string
}

type feedResponse struct {
	Results []feedItem `json:"results"`
	Next    string     `json:"next"`
}

type feedItem struct {
	ElectionID    string `json:"election_id"`
	ElectionTitle string `json:"election_title"`
	PollOpenDate  string `json:"poll_open_date"`
	GroupType     string `json:"group_type"`
	Organisation  struct {
		TerritoryCode string `json:"territory_code"`
	} `json:"organisation"`
}

type detailResponse struct {
	CandidaciesCount int  `json:"candidacies_count"`
	CandidatesLocked bool `json:"candidates_locked"`
	Sopn             *struct {
		DocumentURL string `json:"document_url"`
	} `json:"sopn"`
	Post struct {
		Label string `json:"label"`
	} `json:"post"`
}

// FirstPageURL builds the initial feed request, scoped to future elections.
func (c *Client) FirstPageURL(pageSize int) string {
	return fmt.Sprintf("%s?future=1&limit=%d", c.feedURL, pageSize)
}

// ListElections fetches one page of the feed. It returns the page's valid
// items and the follow-up page URL, empty on the last page. A non-success
// response is a hard failure: the feed is the run's backbone.
func (c *Client) ListElections(ctx context.Context, pageURL string) ([]Item, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body))
	}

	var page feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("decode feed page: %w", err)
	}

	var items []Item
	for _, r := range page.Results {
		if r.ElectionID == "" {
			log.Printf("Feed item with no election_id, skipping")
			continue
		}
		pollDate, err := time.Parse("2006-01-02", r.PollOpenDate)
		if err != nil {
			log.Printf("Feed item %s has bad poll_open_date %q, skipping", r.ElectionID, r.PollOpenDate)
			continue
		}
		items = append(items, Item{
			ElectionID:    r.ElectionID,
			Title:         r.ElectionTitle,
			PollOpenDate:  pollDate,
			GroupType:     r.GroupType,
			TerritoryCode: r.Organisation.TerritoryCode,
		})
	}

	return items, page.Next, nil
}

// GetBallotDetail fetches candidate count, lock state and statement upload
// state for one ballot. A not-found or error status returns (nil, nil):
// missing detail is a valid outcome for very new ballots, and the caller
// substitutes a placeholder.
func (c *Client) GetBallotDetail(ctx context.Context, ballotID string) (*Detail, error) {
	url := fmt.Sprintf("%s/api/ballots/%s/", c.candidatesURL, ballotID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var d detailResponse
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode detail for %s: %w", ballotID, err)
	}

	return &Detail{
		CandidateCount: d.CandidaciesCount,
		Locked:         d.CandidatesLocked,
		HasSopn:        d.Sopn != nil,
		PostLabel:      d.Post.Label,
	}, nil
}

// BallotURL is the canonical public detail page for a ballot.
func (c *Client) BallotURL(ballotID string) string {
	return fmt.Sprintf("%s/elections/%s/", c.candidatesURL, ballotID)
}
