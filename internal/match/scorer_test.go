package match

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/geo"
)

func fptr(v float64) *float64 { return &v }

// testListing builds an active barter listing in central Geneva. Tests tweak
// the returned value for their scenario.
func testListing(id, owner, category string) domain.Listing {
	return domain.Listing{
		ID:             id,
		OwnerID:        owner,
		Title:          id,
		CategoryID:     category,
		Condition:      domain.ConditionGood,
		EstimatedValue: 50,
		Currency:       "CHF",
		Latitude:       fptr(46.2044),
		Longitude:      fptr(6.1432),
		ExchangeType:   domain.ExchangeBarter,
		Status:         domain.StatusActive,
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func defaultScorer() *Scorer {
	return NewScorer(DefaultWeights(), geo.DefaultZoneThresholds(), nil)
}

func TestScoreMutualSwap(t *testing.T) {
	affinity := domain.NewAffinityTable(nil, map[[2]string]float64{
		{"books", "electronics"}: 0.7,
	})
	scorer := NewScorer(DefaultWeights(), geo.DefaultZoneThresholds(), affinity)

	a := testListing("la", "u1", "books")
	a.DesiredItems = []string{"electronics"}
	a.Owner = &domain.UserProfile{ID: "u1", TrustScore: 90}

	b := testListing("lb", "u2", "electronics")
	b.DesiredItems = []string{"books"}
	b.Latitude, b.Longitude = fptr(46.2100), fptr(6.1500)
	b.Owner = &domain.UserProfile{ID: "u2", TrustScore: 90}

	ps := scorer.Score(a, b)

	require.False(t, ps.Blocked)
	assert.InDelta(t, 0.936, ps.Score, 1e-9)
	assert.GreaterOrEqual(t, ps.Score, 0.85)
	assert.Equal(t, domain.DirectionTwoWay, ps.Direction)

	require.NotNil(t, ps.DistanceKm)
	assert.Less(t, *ps.DistanceKm, 2.0)

	assert.Equal(t, 1.0, ps.Components.DesireMatch)
	assert.Equal(t, 1.0, ps.Components.ValueBalance)
	assert.Equal(t, 0.7, ps.Components.CategoryAffinity)
	assert.InDelta(t, 0.9, ps.Components.TrustScore, 1e-9)

	assert.Equal(t, []string{
		ReasonDesireMatch,
		ReasonValueMatch,
		string(geo.ZoneVeryClose),
		ReasonConditionMatch,
		ReasonTrustedOwners,
	}, ps.Reasons)
}

func TestScoreOutOfRangeTravelLimit(t *testing.T) {
	scorer := defaultScorer()

	a := testListing("la", "u1", "books")
	a.DesiredItems = []string{"electronics"}
	a.Owner = &domain.UserProfile{ID: "u1", TrustScore: 90, MaxTravelKm: fptr(100)}

	b := testListing("lb", "u2", "electronics")
	b.DesiredItems = []string{"books"}
	b.Latitude, b.Longitude = fptr(47.3769), fptr(8.5417) // Zurich, ~224 km
	b.Owner = &domain.UserProfile{ID: "u2", TrustScore: 90, MaxTravelKm: fptr(100)}

	ps := scorer.Score(a, b)
	require.True(t, ps.Blocked)
	assert.Equal(t, 0.0, ps.Score)
	assert.Equal(t, []string{ReasonBlocked, ReasonOutOfRange}, ps.Reasons)
	require.NotNil(t, ps.DistanceKm)
	assert.Greater(t, *ps.DistanceKm, 100.0)
}

func TestScoreDistanceBeyondZones(t *testing.T) {
	scorer := defaultScorer()

	// Same pair, no declared travel limits: not blocked, but the distance
	// component bottoms out and drags the total down.
	a := testListing("la", "u1", "books")
	a.DesiredItems = []string{"electronics"}
	a.Owner = &domain.UserProfile{ID: "u1", TrustScore: 90}

	b := testListing("lb", "u2", "electronics")
	b.DesiredItems = []string{"books"}
	b.Latitude, b.Longitude = fptr(47.3769), fptr(8.5417)
	b.Owner = &domain.UserProfile{ID: "u2", TrustScore: 90}

	ps := scorer.Score(a, b)
	require.False(t, ps.Blocked)
	assert.Equal(t, 0.0, ps.Components.DistanceScore)
	assert.InDelta(t, 0.66, ps.Score, 1e-9) // no affinity table: category component is 0 too
	assert.NotContains(t, ps.Reasons, string(geo.ZoneVeryClose))
}

func TestScoreSameOwner(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	b := testListing("lb", "u1", "electronics")

	ps := scorer.Score(a, b)
	require.True(t, ps.Blocked)
	assert.Equal(t, []string{ReasonBlocked, ReasonSameOwner}, ps.Reasons)
}

func TestScoreInactive(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	b := testListing("lb", "u2", "electronics")
	b.Status = domain.StatusPaused

	ps := scorer.Score(a, b)
	require.True(t, ps.Blocked)
	assert.Equal(t, []string{ReasonBlocked, ReasonInactive}, ps.Reasons)
}

func TestScoreExcludedItemSymmetric(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	a.ExcludedItems = []string{"electronics"}
	b := testListing("lb", "u2", "electronics")

	forward := scorer.Score(a, b)
	backward := scorer.Score(b, a)
	require.True(t, forward.Blocked)
	require.True(t, backward.Blocked)
	assert.Equal(t, []string{ReasonBlocked, ReasonExcludedItem}, forward.Reasons)
	assert.Equal(t, []string{ReasonBlocked, ReasonExcludedItem}, backward.Reasons)
}

func TestScoreExcludedByTag(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	a.ExcludedItems = []string{"broken"}
	b := testListing("lb", "u2", "electronics")
	b.Tags = []string{"vintage", "broken"}

	ps := scorer.Score(a, b)
	require.True(t, ps.Blocked)
	assert.Equal(t, []string{ReasonBlocked, ReasonExcludedItem}, ps.Reasons)
}

func TestScoreCurrencyMismatch(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	b := testListing("lb", "u2", "electronics")
	b.Currency = "EUR"

	ps := scorer.Score(a, b)
	require.True(t, ps.Blocked)
	assert.Equal(t, []string{ReasonBlocked, ReasonCurrencyMismatch}, ps.Reasons)

	// An empty currency on either side is not a mismatch.
	b.Currency = ""
	assert.False(t, scorer.Score(a, b).Blocked)
}

func TestExchangeCompatible(t *testing.T) {
	tests := []struct {
		a, b     domain.ExchangeType
		directed bool
		want     bool
	}{
		{domain.ExchangeBarter, domain.ExchangeBarter, false, true},
		{domain.ExchangeBarter, domain.ExchangeService, false, true},
		{domain.ExchangeService, domain.ExchangeService, false, true},
		{domain.ExchangeSale, domain.ExchangeSale, false, true},
		{domain.ExchangeBarter, domain.ExchangeSale, false, false},
		{domain.ExchangeSale, domain.ExchangeService, false, false},
		{domain.ExchangeBoth, domain.ExchangeSale, false, true},
		{domain.ExchangeBarter, domain.ExchangeBoth, false, true},

		// One-way listings give but never receive. The undirected view
		// flips the pair so the one-way side donates.
		{domain.ExchangeDonation, domain.ExchangeBarter, false, true},
		{domain.ExchangeBarter, domain.ExchangeDonation, false, true},
		{domain.ExchangeFree, domain.ExchangeDonation, false, false},

		{domain.ExchangeDonation, domain.ExchangeBarter, true, true},
		{domain.ExchangeBarter, domain.ExchangeDonation, true, false},
		{domain.ExchangeFree, domain.ExchangeFree, true, false},
	}
	for _, tt := range tests {
		got := exchangeCompatible(tt.a, tt.b, tt.directed)
		assert.Equal(t, tt.want, got, "%s/%s directed=%v", tt.a, tt.b, tt.directed)
	}
}

func TestScoreOneWayDirection(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	a.ExchangeType = domain.ExchangeDonation
	a.DesiredItems = nil
	b := testListing("lb", "u2", "electronics")
	b.DesiredItems = []string{"books"}

	ps := scorer.Score(a, b)
	require.False(t, ps.Blocked)
	assert.Equal(t, domain.DirectionOneWay, ps.Direction)

	// Directed: the donation can only sit on the giving end.
	require.False(t, scorer.ScoreEdge(a, b).Blocked)
	require.True(t, scorer.ScoreEdge(b, a).Blocked)
	assert.Equal(t, []string{ReasonBlocked, ReasonIncompatibleTrade},
		scorer.ScoreEdge(b, a).Reasons)
}

func TestScoreEdgeDesireIsRecipientOnly(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	a.DesiredItems = []string{"garden"} // donor's own wants do not count
	b := testListing("lb", "u2", "electronics")
	b.DesiredItems = []string{"books"}

	edge := scorer.ScoreEdge(a, b)
	assert.Equal(t, 1.0, edge.Components.DesireMatch)

	mutual := scorer.Score(a, b)
	assert.Equal(t, 0.0, mutual.Components.DesireMatch)
}

func TestDesireComponent(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	b := testListing("lb", "u2", "electronics")

	// Neither side declares desires: indifferent.
	assert.Equal(t, indifferentDesire, scorer.Score(a, b).Components.DesireMatch)

	// Tag matches count as desire matches.
	a.DesiredItems = []string{"vintage"}
	b.DesiredItems = []string{"books"}
	b.Tags = []string{"vintage"}
	assert.Equal(t, 1.0, scorer.Score(a, b).Components.DesireMatch)
}

func TestScoreUnknownLocationNeutral(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	a.Latitude, a.Longitude = nil, nil
	a.Owner = &domain.UserProfile{ID: "u1", MaxTravelKm: fptr(10)}
	b := testListing("lb", "u2", "electronics")

	ps := scorer.Score(a, b)
	require.False(t, ps.Blocked, "unknown distance never trips the travel limit")
	assert.Nil(t, ps.DistanceKm)
	assert.Equal(t, neutralDistanceComponent, ps.Components.DistanceScore)
}

func TestScoreInvalidCoordinatesNeutral(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	a.Latitude, a.Longitude = fptr(206.0), fptr(6.1)
	b := testListing("lb", "u2", "electronics")

	ps := scorer.Score(a, b)
	assert.Nil(t, ps.DistanceKm)
	assert.Equal(t, neutralDistanceComponent, ps.Components.DistanceScore)
}

func TestScoreMissingOwnerNeutralTrust(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	b := testListing("lb", "u2", "electronics")

	assert.Equal(t, neutralTrustComponent, scorer.Score(a, b).Components.TrustScore)

	a.Owner = &domain.UserProfile{ID: "u1", TrustScore: 80}
	b.Owner = &domain.UserProfile{ID: "u2", TrustScore: 40}
	assert.InDelta(t, 0.4, scorer.Score(a, b).Components.TrustScore, 1e-9)
}

func TestValueBalance(t *testing.T) {
	assert.Equal(t, 1.0, valueBalance(50, 50))
	assert.InDelta(t, 0.9, valueBalance(50, 45), 1e-9)
	assert.InDelta(t, 0.1, valueBalance(50, 500), 1e-9)
	assert.Equal(t, 1.0, valueBalance(0, 0))
	assert.Equal(t, 0.0, valueBalance(0, 10))
}

func TestConditionMatchComponent(t *testing.T) {
	assert.Equal(t, 1.0, conditionMatch(domain.ConditionGood, domain.ConditionGood))
	assert.Equal(t, 0.0, conditionMatch(domain.ConditionNew, domain.ConditionPoor))
	assert.InDelta(t, 0.75, conditionMatch(domain.ConditionNew, domain.ConditionExcellent), 1e-9)
}

func TestDistanceWeightShiftsScore(t *testing.T) {
	heavy := Weights{
		ValueBalance:     0.18,
		CategoryAffinity: 0.14,
		ConditionMatch:   0.08,
		DistanceScore:    0.40,
		TrustScore:       0.05,
		DesireMatch:      0.15,
	}
	require.True(t, heavy.Valid())

	a := testListing("la", "u1", "books")
	a.DesiredItems = []string{"electronics"}
	b := testListing("lb", "u2", "electronics")
	b.DesiredItems = []string{"books"}
	b.Latitude, b.Longitude = fptr(47.3769), fptr(8.5417) // distance component 0

	base := defaultScorer().Score(a, b)
	shifted := NewScorer(heavy, geo.DefaultZoneThresholds(), nil).Score(a, b)
	assert.Less(t, shifted.Score, base.Score)
}

func TestWeightsValid(t *testing.T) {
	assert.True(t, DefaultWeights().Valid())
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-9)
	assert.False(t, Weights{ValueBalance: 1.1}.Valid())
	assert.False(t, Weights{ValueBalance: 1.2, CategoryAffinity: -0.2}.Valid())
}

func TestNewScorerFallsBackOnInvalidConfig(t *testing.T) {
	s := NewScorer(Weights{ValueBalance: 2}, geo.ZoneThresholds{}, nil)
	assert.Equal(t, DefaultWeights(), s.weights)
	assert.Equal(t, geo.DefaultZoneThresholds(), s.zones)
}

func TestScoreBounds(t *testing.T) {
	scorer := defaultScorer()
	rng := rand.New(rand.NewSource(99))
	categories := []string{"books", "electronics", "garden", "tools"}
	types := []domain.ExchangeType{
		domain.ExchangeBarter, domain.ExchangeBoth, domain.ExchangeSale,
		domain.ExchangeDonation, domain.ExchangeService,
	}

	randomListing := func(id, owner string) domain.Listing {
		l := testListing(id, owner, categories[rng.Intn(len(categories))])
		l.EstimatedValue = rng.Float64() * 1000
		l.ExchangeType = types[rng.Intn(len(types))]
		l.Condition = domain.Condition([]string{"new", "excellent", "good", "fair", "poor"}[rng.Intn(5)])
		if rng.Intn(3) == 0 {
			l.Latitude, l.Longitude = nil, nil
		} else {
			l.Latitude = fptr(45 + rng.Float64()*3)
			l.Longitude = fptr(5 + rng.Float64()*5)
		}
		if rng.Intn(2) == 0 {
			l.DesiredItems = []string{categories[rng.Intn(len(categories))]}
		}
		return l
	}

	for i := 0; i < 300; i++ {
		a := randomListing("la", "u1")
		b := randomListing("lb", "u2")
		ps := scorer.Score(a, b)

		require.GreaterOrEqual(t, ps.Score, 0.0)
		require.LessOrEqual(t, ps.Score, 1.0)
		if ps.Blocked {
			require.Equal(t, 0.0, ps.Score)
			require.NotEmpty(t, ps.Reasons)
			require.Equal(t, ReasonBlocked, ps.Reasons[0])
			continue
		}
		for _, c := range []float64{
			ps.Components.ValueBalance, ps.Components.CategoryAffinity,
			ps.Components.ConditionMatch, ps.Components.DistanceScore,
			ps.Components.TrustScore, ps.Components.DesireMatch,
		} {
			require.GreaterOrEqual(t, c, 0.0)
			require.LessOrEqual(t, c, 1.0)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	scorer := defaultScorer()
	a := testListing("la", "u1", "books")
	a.DesiredItems = []string{"electronics"}
	b := testListing("lb", "u2", "electronics")
	b.DesiredItems = []string{"books"}

	first := scorer.Score(a, b)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, scorer.Score(a, b))
	}
}
