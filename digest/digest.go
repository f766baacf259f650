package digest

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"election_watch/models"
)

// MaxLines caps the digest, header included.
const MaxLines = 30

const moreDetailsURL = "https://candidates.democracyclub.org.uk/elections/"

var emblems = []string{
	":satellite_antenna:",
	":rotating_light:",
	":ballot_box_with_ballot:",
	":mega:",
	":alarm_clock:",
	":phone:",
}

var titles = []string{
	"By-Elections happening in the next month",
	"By-Election update!",
	"By-Elections coming up this month",
}

// Formatter renders a run's ballots as a Slack-flavoured text digest. The
// entropy source is explicit so callers can make the header deterministic.
type Formatter struct {
	rng *rand.Rand
	now func() time.Time
}

func New(rng *rand.Rand) *Formatter {
	return &Formatter{rng: rng, now: time.Now}
}

// Format returns the digest for a set of ballots, sorted by poll date
// (stable on ties), one annotated line per ballot, capped at MaxLines with
// a see-more trailer beyond that.
func (f *Formatter) Format(ballots []models.Ballot) string {
	sorted := make([]models.Ballot, len(ballots))
	copy(sorted, ballots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PollOpenDate.Before(sorted[j].PollOpenDate)
	})

	lines := []string{f.header()}
	for _, b := range sorted {
		lines = append(lines, f.ballotLine(b))
	}

	if len(lines) > MaxLines {
		lines = lines[:MaxLines]
		lines = append(lines, "...for more details see <"+moreDetailsURL+">")
	}

	return strings.Join(lines, "\n")
}

func (f *Formatter) header() string {
	return fmt.Sprintf("%s *%s* %s", f.emblem(), f.title(), f.emblem())
}

func (f *Formatter) emblem() string {
	return emblems[f.rng.Intn(len(emblems))]
}

func (f *Formatter) title() string {
	return titles[f.rng.Intn(len(titles))]
}

func (f *Formatter) ballotLine(b models.Ballot) string {
	line := fmt.Sprintf("%s: <%s|%s>. known candidates: %d",
		formatDate(b.PollOpenDate), b.URL, b.Name, b.KnownCandidates)

	if b.KnownCandidates == 0 {
		line += " :womble: required"
	}
	if b.Locked {
		line += " :lock:"
	} else if msg := f.sopnMessage(b); msg != "" {
		line += msg
	}

	return line
}

// sopnMessage picks at most one statement annotation: uploaded beats
// overdue beats a due date, and no prediction means no message.
func (f *Formatter) sopnMessage(b models.Ballot) string {
	if b.HasSopn {
		return " (SoPN uploaded)"
	}
	if b.SopnPublished == nil {
		return ""
	}
	today := f.now().Truncate(24 * time.Hour)
	if b.SopnPublished.Before(today) {
		return " (SoPN should be published)"
	}
	return fmt.Sprintf(" (SoPN due %s)", formatDate(*b.SopnPublished))
}

func formatDate(d time.Time) string {
	return d.Format("02/01/2006")
}
