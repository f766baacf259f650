package sopn

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Jurisdiction selects which publication offset applies to a ballot.
type Jurisdiction string

const (
	England         Jurisdiction = "ENG"
	Wales           Jurisdiction = "WLS"
	Scotland        Jurisdiction = "SCT"
	NorthernIreland Jurisdiction = "NIR"
	Unspecified     Jurisdiction = ""
)

// JurisdictionFromTerritory maps a feed territory code onto a jurisdiction.
// Unknown codes map to Unspecified; rule defaults still apply.
func JurisdictionFromTerritory(code string) Jurisdiction {
	switch code {
	case "ENG":
		return England
	case "WLS":
		return Wales
	case "SCT":
		return Scotland
	case "NIR":
		return NorthernIreland
	default:
		return Unspecified
	}
}

type ruleFile struct {
	Rules []rule `yaml:"rules"`
}

type rule struct {
	ElectionType string         `yaml:"election_type"`
	Offsets      map[string]int `yaml:"offsets"` // jurisdiction (or "default") -> working days before poll
}

// Predictor computes expected statement-of-persons-nominated publication
// dates from a table of per-election-type working-day offsets.
type Predictor struct {
	rules map[string]map[string]int
}

// Load reads the offset rules from a YAML file.
func Load(path string) (*Predictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sopn rules: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sopn rules: %w", err)
	}

	rules := make(map[string]map[string]int, len(f.Rules))
	for _, r := range f.Rules {
		rules[r.ElectionType] = r.Offsets
	}
	return &Predictor{rules: rules}, nil
}

// Predict returns the expected publication date for a ballot. The second
// return is false when no prediction can be made: unrecognized identifier
// shape, unknown election type, or no offset for the jurisdiction. It never
// fails harder than that, whatever the input looks like.
func (p *Predictor) Predict(ballotID string, jurisdiction Jurisdiction) (time.Time, bool) {
	segments := strings.Split(ballotID, ".")
	if len(segments) < 2 {
		return time.Time{}, false
	}

	pollDate, err := time.Parse("2006-01-02", segments[len(segments)-1])
	if err != nil {
		return time.Time{}, false
	}

	offsets, ok := p.rules[segments[0]]
	if !ok {
		return time.Time{}, false
	}

	days, ok := offsets[string(jurisdiction)]
	if !ok {
		days, ok = offsets["default"]
		if !ok {
			return time.Time{}, false
		}
	}

	return subtractWorkingDays(pollDate, days), true
}

// subtractWorkingDays steps back n weekdays from d, skipping Saturdays and
// Sundays.
func subtractWorkingDays(d time.Time, n int) time.Time {
	for n > 0 {
		d = d.AddDate(0, 0, -1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return d
}
