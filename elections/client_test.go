package elections

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func TestListElections_ParsesAndValidates(t *testing.T) {
	fixture := loadFixture(t, "feed_page.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL+"/elections.json", server.URL)
	items, next, err := client.ListElections(context.Background(), client.FirstPageURL(100))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if next != "" {
		t.Fatalf("expected no next page, got %q", next)
	}

	// Items with a missing id or unparseable date are dropped at the boundary.
	if len(items) != 2 {
		t.Fatalf("expected 2 valid items, got %d", len(items))
	}

	ballot := items[0]
	if ballot.ElectionID != "local.worthing.marine.by.2026-09-10" {
		t.Fatalf("unexpected election id %s", ballot.ElectionID)
	}
	if !ballot.IsBallot() {
		t.Fatalf("expected an individual ballot")
	}
	if ballot.TerritoryCode != "ENG" {
		t.Fatalf("unexpected territory code %s", ballot.TerritoryCode)
	}
	want := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	if !ballot.PollOpenDate.Equal(want) {
		t.Fatalf("unexpected poll date %s", ballot.PollOpenDate)
	}

	group := items[1]
	if group.IsBallot() {
		t.Fatalf("expected an aggregate grouping, got a ballot")
	}
}

func TestListElections_FeedErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL+"/elections.json", server.URL)
	_, _, err := client.ListElections(context.Background(), client.FirstPageURL(100))
	if err == nil {
		t.Fatalf("expected an error for a failing feed page")
	}
}

func TestGetBallotDetail_Basic(t *testing.T) {
	fixture := loadFixture(t, "ballot_detail.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ballots/local.worthing.marine.by.2026-09-10/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write(fixture)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL+"/elections.json", server.URL)
	detail, err := client.GetBallotDetail(context.Background(), "local.worthing.marine.by.2026-09-10")
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail == nil {
		t.Fatalf("expected detail")
	}
	if detail.CandidateCount != 3 {
		t.Fatalf("expected 3 candidates, got %d", detail.CandidateCount)
	}
	if detail.Locked {
		t.Fatalf("expected unlocked")
	}
	if !detail.HasSopn {
		t.Fatalf("expected uploaded statement")
	}
	if detail.PostLabel != "Marine" {
		t.Fatalf("unexpected post label %s", detail.PostLabel)
	}
}

func TestGetBallotDetail_NotFoundIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL+"/elections.json", server.URL)
	detail, err := client.GetBallotDetail(context.Background(), "local.brand.new.by.2026-09-24")
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if detail != nil {
		t.Fatalf("expected nil detail for not-found")
	}
}

func TestIsByElection(t *testing.T) {
	cases := map[string]bool{
		"local.worthing.marine.by.2026-09-10": true,
		"parl.oldham-west.by.2026-09-10":      true,
		"local.worthing.marine.2026-09-10":    false,
		"local.byfleet.west.2026-09-10":       false, // "byfleet" is not the reserved segment
		"":                                    false,
	}
	for id, want := range cases {
		if got := IsByElection(id); got != want {
			t.Fatalf("IsByElection(%q) = %v, want %v", id, got, want)
		}
	}
}
