// Package scoring filters the catalog against a canonical request and ranks
// the survivors by weighted match quality.
package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/storage/models"
)

// DefaultTopN is how many matches a ranking returns.
const DefaultTopN = 10

// Breakdown holds each component's weighted contribution on a 0-100 scale.
type Breakdown struct {
	Budget      float64 `json:"budget"`
	Environment float64 `json:"environment"`
	Features    float64 `json:"features"`
	Tags        float64 `json:"tags"`
	Total       float64 `json:"total"`
}

// Match is a ranked property snapshot, including its current booked days.
type Match struct {
	Property  models.Property `json:"property"`
	Score     float64         `json:"score"`
	Breakdown Breakdown       `json:"breakdown"`
}

// Result is a ranking. NoMatch is set when no property passed the filters,
// which is a valid outcome and not an error.
type Result struct {
	Matches []Match `json:"matches"`
	NoMatch bool    `json:"no_match"`
}

// MatchesLocation reports whether the property's location contains any
// requested location, ignoring case. No requested location matches all.
func MatchesLocation(req *models.SearchRequest, p *models.Property) bool {
	if len(req.Locations) == 0 {
		return true
	}
	location := strings.ToLower(p.Location)
	for _, l := range req.Locations {
		if strings.Contains(location, strings.ToLower(l)) {
			return true
		}
	}
	return false
}

// HasCapacity reports whether the property sleeps the whole group.
func HasCapacity(req *models.SearchRequest, p *models.Property) bool {
	return p.Capacity >= req.GroupSize
}

// IsAvailable reports whether none of days is booked on the property.
func IsAvailable(p *models.Property, days []time.Time) bool {
	for _, d := range days {
		if p.IsBooked(d) {
			return false
		}
	}
	return true
}

// Filter applies the location, capacity and availability filters in that
// order, each over the previous one's survivors. A malformed date range
// admits nothing.
func Filter(req *models.SearchRequest, properties []models.Property) []models.Property {
	days, err := calendar.ExpandDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil
	}

	survivors := keep(properties, func(p *models.Property) bool { return MatchesLocation(req, p) })
	survivors = keep(survivors, func(p *models.Property) bool { return HasCapacity(req, p) })
	return keep(survivors, func(p *models.Property) bool { return IsAvailable(p, days) })
}

func keep(properties []models.Property, pred func(p *models.Property) bool) []models.Property {
	var out []models.Property
	for i := range properties {
		if pred(&properties[i]) {
			out = append(out, properties[i])
		}
	}
	return out
}

// Score computes the weighted match quality of one property.
func Score(req *models.SearchRequest, p *models.Property) Breakdown {
	w := req.Weights.Normalized()

	budget := 0.0
	if p.Price >= req.PriceMin && p.Price <= req.PriceMax {
		budget = 1
	}
	environment := 0.0
	if req.Environment == "" || req.Environment == p.Environment {
		environment = 1
	}

	b := Breakdown{
		Budget:      100 * w.Budget * budget,
		Environment: 100 * w.Environment * environment,
		Features:    100 * w.Features * overlap(req.Features, p.Features),
		Tags:        100 * w.Tags * overlap(req.Tags, p.Tags),
	}
	b.Total = b.Budget + b.Environment + b.Features + b.Tags
	return b
}

// overlap is the fraction of requested terms the property has, ignoring
// case. Nothing requested counts as a full match.
func overlap(requested, offered []string) float64 {
	if len(requested) == 0 {
		return 1
	}
	have := make(map[string]bool, len(offered))
	for _, o := range offered {
		have[strings.ToLower(o)] = true
	}
	hits := 0
	for _, r := range requested {
		if have[strings.ToLower(r)] {
			hits++
		}
	}
	return float64(hits) / float64(len(requested))
}

// Engine ranks filtered properties.
type Engine struct {
	topN int
}

// NewEngine creates an engine returning at most topN matches; values below
// one use DefaultTopN.
func NewEngine(topN int) *Engine {
	if topN < 1 {
		topN = DefaultTopN
	}
	return &Engine{topN: topN}
}

// Rank filters, scores and sorts properties by descending score. Equal
// scores keep their input order.
func (e *Engine) Rank(req *models.SearchRequest, properties []models.Property) Result {
	survivors := Filter(req, properties)
	if len(survivors) == 0 {
		return Result{Matches: []Match{}, NoMatch: true}
	}

	matches := make([]Match, 0, len(survivors))
	for i := range survivors {
		b := Score(req, &survivors[i])
		matches = append(matches, Match{Property: survivors[i], Score: b.Total, Breakdown: b})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if len(matches) > e.topN {
		matches = matches[:e.topN]
	}
	return Result{Matches: matches}
}
