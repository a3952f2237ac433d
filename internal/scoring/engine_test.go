package scoring

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staymatch/backend/internal/storage/models"
)

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func halifaxCatalog() []models.Property {
	return []models.Property{
		{ID: 1, Location: "Halifax", Type: "Cottage", Price: 150, Capacity: 6, Environment: "beach",
			Features: []string{"WiFi", "hot tub"}, Tags: []string{"family"}},
		{ID: 2, Location: "Halifax", Type: "Condo", Price: 400, Capacity: 4, Environment: "urban",
			Features: []string{"wifi"}, Tags: []string{"business"}},
	}
}

func halifaxRequest() *models.SearchRequest {
	req := &models.SearchRequest{
		Locations:   []string{"Halifax"},
		Environment: "beach",
		GroupSize:   5,
		StartDate:   day("2025-08-01"),
		EndDate:     day("2025-08-03"),
		Weights:     models.EqualWeights(),
	}
	req.SetPriceBand(0, 200)
	return req
}

func TestRank_CapacityExcludes(t *testing.T) {
	res := NewEngine(0).Rank(halifaxRequest(), halifaxCatalog())

	require.False(t, res.NoMatch)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 1, res.Matches[0].Property.ID)
	assert.Equal(t, 100.0, res.Matches[0].Score)
	assert.Equal(t, Breakdown{Budget: 25, Environment: 25, Features: 25, Tags: 25, Total: 100}, res.Matches[0].Breakdown)
}

func TestRank_BookedDateExcludes(t *testing.T) {
	properties := halifaxCatalog()
	properties[0].Booked = []time.Time{day("2025-08-02")}

	res := NewEngine(0).Rank(halifaxRequest(), properties)
	assert.True(t, res.NoMatch)
	assert.Empty(t, res.Matches)
}

func TestRank_SnapshotCarriesBookedDays(t *testing.T) {
	properties := halifaxCatalog()
	properties[0].Booked = []time.Time{day("2025-09-01")}

	res := NewEngine(0).Rank(halifaxRequest(), properties)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, []time.Time{day("2025-09-01")}, res.Matches[0].Property.Booked)
}

func TestScore_Components(t *testing.T) {
	p := &models.Property{Price: 300, Environment: "urban", Features: []string{"wifi", "Gym"}, Tags: []string{"quiet"}}

	tests := []struct {
		name string
		edit func(r *models.SearchRequest)
		want Breakdown
	}{
		{
			name: "nothing matches",
			edit: func(r *models.SearchRequest) {
				r.Features = []string{"pool"}
				r.Tags = []string{"family"}
			},
			want: Breakdown{},
		},
		{
			name: "partial features",
			edit: func(r *models.SearchRequest) {
				r.Environment = "urban"
				r.SetPriceBand(250, 350)
				r.Features = []string{"WIFI", "gym", "pool", "sauna"}
			},
			want: Breakdown{Budget: 25, Environment: 25, Features: 12.5, Tags: 25, Total: 87.5},
		},
		{
			name: "price below the floor",
			edit: func(r *models.SearchRequest) {
				r.Environment = ""
				r.SetPriceBand(350, 500)
			},
			want: Breakdown{Environment: 25, Features: 25, Tags: 25, Total: 75},
		},
		{
			name: "weighted budget only",
			edit: func(r *models.SearchRequest) {
				r.SetPriceBand(0, 300)
				r.Weights = models.Weights{Budget: 2}
			},
			want: Breakdown{Budget: 100, Total: 100},
		},
		{
			name: "all zero weights are equal",
			edit: func(r *models.SearchRequest) {
				r.Environment = ""
				r.Weights = models.Weights{}
			},
			want: Breakdown{Environment: 25, Features: 25, Tags: 25, Total: 75},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := halifaxRequest()
			tt.edit(req)
			assert.Equal(t, tt.want, Score(req, p))
		})
	}
}

func TestWeightsNormalizedSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		w := models.Weights{
			Budget:      rng.Float64() * 10,
			Environment: rng.Float64() * 10,
			Features:    rng.Float64() * 10,
			Tags:        rng.Float64() * 10,
		}
		n := w.Normalized()
		assert.InDelta(t, 1.0, n.Budget+n.Environment+n.Features+n.Tags, 1e-9)
	}
	assert.Equal(t, models.Weights{Budget: 0.25, Environment: 0.25, Features: 0.25, Tags: 0.25}, models.Weights{}.Normalized())
}

func TestFilter_ExactlyThePredicates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	locations := []string{"Halifax", "Halifax North", "Banff", "Tofino"}

	var properties []models.Property
	for i := 0; i < 100; i++ {
		p := models.Property{
			ID:       i,
			Location: locations[rng.Intn(len(locations))],
			Capacity: 1 + rng.Intn(8),
		}
		for d := 0; d < 3; d++ {
			if rng.Intn(4) == 0 {
				p.Booked = append(p.Booked, day("2025-08-01").AddDate(0, 0, rng.Intn(10)))
			}
		}
		p.Booked = models.NormalizeDays(p.Booked)
		properties = append(properties, p)
	}

	req := &models.SearchRequest{
		Locations: []string{"halifax", "tofino"},
		GroupSize: 4,
		StartDate: day("2025-08-03"),
		EndDate:   day("2025-08-05"),
	}
	days := []time.Time{day("2025-08-03"), day("2025-08-04"), day("2025-08-05")}

	got := Filter(req, properties)

	var want []models.Property
	for i := range properties {
		p := &properties[i]
		if MatchesLocation(req, p) && HasCapacity(req, p) && IsAvailable(p, days) {
			want = append(want, *p)
		}
	}
	assert.Equal(t, want, got)
	for _, p := range got {
		assert.NotEqual(t, "Banff", p.Location)
		assert.GreaterOrEqual(t, p.Capacity, 4)
	}
}

func TestFilter_MalformedRange(t *testing.T) {
	req := halifaxRequest()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	assert.Empty(t, Filter(req, halifaxCatalog()))
}

func TestRank_StableAndTruncated(t *testing.T) {
	var properties []models.Property
	for i := 1; i <= 15; i++ {
		env := "urban"
		if i%3 == 0 {
			env = "beach"
		}
		properties = append(properties, models.Property{ID: i, Location: "Halifax", Price: 100, Capacity: 6, Environment: env})
	}

	res := NewEngine(4).Rank(halifaxRequest(), properties)
	require.Len(t, res.Matches, 4)

	var ids []int
	for _, m := range res.Matches {
		ids = append(ids, m.Property.ID)
	}
	assert.Equal(t, []int{3, 6, 9, 12}, ids)

	res = NewEngine(0).Rank(halifaxRequest(), properties)
	ids = ids[:0]
	for _, m := range res.Matches {
		ids = append(ids, m.Property.ID)
	}
	assert.Equal(t, []int{3, 6, 9, 12, 15, 1, 2, 4, 5, 7}, ids)
}
