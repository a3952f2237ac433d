package models

import (
	"errors"
	"fmt"
	"time"
)

// RawRequest is a loosely structured search request, as typed by a user or
// extracted from free text. Any field may be empty or use non-canonical wording.
type RawRequest struct {
	Location    string   `json:"location,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Type        string   `json:"type,omitempty"`
	GroupSize   int      `json:"group_size,omitempty"`
	Budget      string   `json:"budget,omitempty"` // "200" or "100-250"
	PriceMin    *float64 `json:"price_min,omitempty"`
	PriceMax    *float64 `json:"price_max,omitempty"`
	Features    []string `json:"features,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`

	BudgetWeight      *float64 `json:"budget_wt,omitempty"`
	EnvironmentWeight *float64 `json:"enviro_wt,omitempty"`
	FeatureWeight     *float64 `json:"feature_wt,omitempty"`
	TagsWeight        *float64 `json:"tags_wt,omitempty"`
}

// Weights are the preference weights of a search. They need not sum to 1.
type Weights struct {
	Budget      float64 `json:"budget_wt"`
	Environment float64 `json:"enviro_wt"`
	Features    float64 `json:"feature_wt"`
	Tags        float64 `json:"tags_wt"`
}

// EqualWeights gives every score component the same importance.
func EqualWeights() Weights {
	return Weights{Budget: 1, Environment: 1, Features: 1, Tags: 1}
}

// Normalized returns the weights scaled to sum to 1.
// Negative weights count as zero; if nothing remains, all four get 0.25.
func (w Weights) Normalized() Weights {
	c := Weights{
		Budget:      nonNegative(w.Budget),
		Environment: nonNegative(w.Environment),
		Features:    nonNegative(w.Features),
		Tags:        nonNegative(w.Tags),
	}
	sum := c.Budget + c.Environment + c.Features + c.Tags
	if sum == 0 {
		return Weights{Budget: 0.25, Environment: 0.25, Features: 0.25, Tags: 0.25}
	}
	return Weights{
		Budget:      c.Budget / sum,
		Environment: c.Environment / sum,
		Features:    c.Features / sum,
		Tags:        c.Tags / sum,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// SearchRequest is a canonical query against the catalog vocabulary.
// Empty Environment or Type means no preference; empty Locations means any location.
// Budget always equals PriceMax.
type SearchRequest struct {
	Locations   []string  `json:"locations"`
	Environment string    `json:"environment,omitempty"`
	Type        string    `json:"type,omitempty"`
	GroupSize   int       `json:"group_size"`
	PriceMin    float64   `json:"price_min"`
	PriceMax    float64   `json:"price_max"`
	Budget      float64   `json:"budget"`
	Features    []string  `json:"features"`
	Tags        []string  `json:"tags"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Weights     Weights   `json:"weights"`
}

// SetPriceBand sets the price bounds and keeps Budget in sync with the ceiling.
func (r *SearchRequest) SetPriceBand(min, max float64) {
	if min > max {
		min, max = max, min
	}
	r.PriceMin = min
	r.PriceMax = max
	r.Budget = max
}

// Validate checks the invariants of a canonical request.
func (r *SearchRequest) Validate() error {
	var errs []error
	if r.GroupSize < 1 {
		errs = append(errs, fmt.Errorf("group size must be at least 1, got %d", r.GroupSize))
	}
	if r.PriceMin > r.PriceMax {
		errs = append(errs, fmt.Errorf("price_min %.2f exceeds price_max %.2f", r.PriceMin, r.PriceMax))
	}
	if r.Budget != r.PriceMax {
		errs = append(errs, fmt.Errorf("budget %.2f out of sync with price_max %.2f", r.Budget, r.PriceMax))
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		errs = append(errs, errors.New("date range is required"))
	} else if r.EndDate.Before(r.StartDate) {
		errs = append(errs, fmt.Errorf("end date %s precedes start date %s",
			r.EndDate.Format(DateLayout), r.StartDate.Format(DateLayout)))
	}
	if r.Weights.Budget < 0 || r.Weights.Environment < 0 || r.Weights.Features < 0 || r.Weights.Tags < 0 {
		errs = append(errs, errors.New("weights must be non-negative"))
	}
	return errors.Join(errs...)
}
