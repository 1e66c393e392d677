// Package match implements the multi-party exchange matching engine: the
// pairwise compatibility scorer, the ranked pair matcher and the N-party
// chain finder over a per-request compatibility graph.
package match

import (
	"math"
	"sort"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/geo"
)

// Weights holds the aggregation weights of the six sub-scores. They must sum
// to 1.
type Weights struct {
	ValueBalance     float64
	CategoryAffinity float64
	ConditionMatch   float64
	DistanceScore    float64
	TrustScore       float64
	DesireMatch      float64
}

// DefaultWeights returns the platform default weighting.
func DefaultWeights() Weights {
	return Weights{
		ValueBalance:     0.22,
		CategoryAffinity: 0.18,
		ConditionMatch:   0.10,
		DistanceScore:    0.15,
		TrustScore:       0.10,
		DesireMatch:      0.25,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.ValueBalance + w.CategoryAffinity + w.ConditionMatch +
		w.DistanceScore + w.TrustScore + w.DesireMatch
}

// Valid reports whether all weights are non-negative and sum to 1 within a
// small tolerance.
func (w Weights) Valid() bool {
	if w.ValueBalance < 0 || w.CategoryAffinity < 0 || w.ConditionMatch < 0 ||
		w.DistanceScore < 0 || w.TrustScore < 0 || w.DesireMatch < 0 {
		return false
	}
	return math.Abs(w.Sum()-1) <= 1e-6
}

// Reason tags. Blocked pairs carry ReasonBlocked first, followed by the
// specific cause; scored pairs carry one tag per strong sub-score ordered by
// weight descending.
const (
	ReasonBlocked            = "blocked"
	ReasonSameOwner          = "same_owner"
	ReasonInactive           = "inactive"
	ReasonExcludedItem       = "excluded_item"
	ReasonIncompatibleTrade  = "incompatible_exchange"
	ReasonCurrencyMismatch   = "currency_mismatch"
	ReasonOutOfRange         = "out_of_range"
	ReasonValueMatch         = "value_match"
	ReasonCategoryMatch      = "category_match"
	ReasonConditionMatch     = "condition_match"
	ReasonDesireMatch        = "desire_match"
	ReasonTrustedOwners      = "trusted_owners"
	strongReasonThreshold    = 0.8
	neutralDistanceComponent = 0.5
	neutralTrustComponent    = 0.5
	indifferentDesire        = 0.25
)

// PairScore is the full outcome of scoring two listings.
type PairScore struct {
	Score      float64
	Components domain.ComponentScores
	Reasons    []string
	DistanceKm *float64
	Direction  string
	Blocked    bool
}

// Scorer computes deterministic pair compatibility scores. It is pure and
// safe for concurrent use.
type Scorer struct {
	weights  Weights
	zones    geo.ZoneThresholds
	affinity *domain.AffinityTable
}

// NewScorer builds a Scorer from the given configuration. Invalid weights
// fall back to the defaults so a misconfigured caller still scores sanely.
func NewScorer(weights Weights, zones geo.ZoneThresholds, affinity *domain.AffinityTable) *Scorer {
	if !weights.Valid() {
		weights = DefaultWeights()
	}
	if !zones.Ascending() {
		zones = geo.DefaultZoneThresholds()
	}
	return &Scorer{weights: weights, zones: zones, affinity: affinity}
}

// Score rates a mutual swap between a and b. The desire component is the
// minimum of both directions: both parties must want the trade.
func (s *Scorer) Score(a, b domain.Listing) PairScore {
	return s.score(a, b, false)
}

// ScoreEdge rates the directed chain edge a→b in which a gives its item to
// b. Only the recipient's desire for the donor's item counts; the donor's own
// wants are satisfied by its incoming edge elsewhere in the chain.
func (s *Scorer) ScoreEdge(a, b domain.Listing) PairScore {
	return s.score(a, b, true)
}

func (s *Scorer) score(a, b domain.Listing, directed bool) PairScore {
	out := PairScore{Direction: domain.DirectionTwoWay}

	if blocked, reason := s.hardReject(a, b, directed); blocked {
		out.Blocked = true
		out.Reasons = []string{ReasonBlocked, reason}
		out.DistanceKm = listingDistance(a, b)
		return out
	}

	if a.ExchangeType.OneWay() || b.ExchangeType.OneWay() {
		out.Direction = domain.DirectionOneWay
	}

	out.DistanceKm = listingDistance(a, b)

	c := domain.ComponentScores{
		ValueBalance:     valueBalance(a.EstimatedValue, b.EstimatedValue),
		CategoryAffinity: s.affinity.Affinity(a.CategoryID, b.CategoryID),
		ConditionMatch:   conditionMatch(a.Condition, b.Condition),
		DistanceScore:    s.distanceComponent(out.DistanceKm),
		TrustScore:       trustComponent(a.Owner, b.Owner),
	}
	if directed {
		c.DesireMatch = desireFor(b, a)
	} else {
		c.DesireMatch = math.Min(desireFor(a, b), desireFor(b, a))
	}

	w := s.weights
	out.Components = c
	out.Score = clampScore(w.ValueBalance*c.ValueBalance +
		w.CategoryAffinity*c.CategoryAffinity +
		w.ConditionMatch*c.ConditionMatch +
		w.DistanceScore*c.DistanceScore +
		w.TrustScore*c.TrustScore +
		w.DesireMatch*c.DesireMatch)

	out.Reasons = s.strongReasons(c, out.DistanceKm)
	return out
}

func (s *Scorer) hardReject(a, b domain.Listing, directed bool) (bool, string) {
	if a.OwnerID == b.OwnerID {
		return true, ReasonSameOwner
	}
	if !a.IsActive() || !b.IsActive() {
		return true, ReasonInactive
	}
	if itemsMatch(a.ExcludedItems, b) || itemsMatch(b.ExcludedItems, a) {
		return true, ReasonExcludedItem
	}
	if !exchangeCompatible(a.ExchangeType, b.ExchangeType, directed) {
		return true, ReasonIncompatibleTrade
	}
	if a.Currency != "" && b.Currency != "" && a.Currency != b.Currency {
		return true, ReasonCurrencyMismatch
	}
	if d := listingDistance(a, b); d != nil {
		if limit, ok := travelLimit(a.Owner, b.Owner); ok && *d > limit {
			return true, ReasonOutOfRange
		}
	}
	return false, ""
}

// exchangeCompatible implements the compatibility table. One-way types (free,
// donation) may only give, never receive; in the undirected pair case a
// one-way listing on either side still yields a valid donor→recipient pair.
func exchangeCompatible(a, b domain.ExchangeType, directed bool) bool {
	if b.OneWay() {
		if directed {
			return false
		}
		// Undirected view: flip so the one-way side is the donor.
		a, b = b, a
		if b.OneWay() {
			return false
		}
	}
	if a.OneWay() {
		return true
	}
	if a == domain.ExchangeBoth || b == domain.ExchangeBoth {
		return true
	}
	switch a {
	case domain.ExchangeBarter, domain.ExchangeService:
		return b == domain.ExchangeBarter || b == domain.ExchangeService
	case domain.ExchangeSale:
		return b == domain.ExchangeSale
	default:
		return false
	}
}

func valueBalance(va, vb float64) float64 {
	denom := math.Max(math.Max(va, vb), 1)
	return 1 - math.Min(1, math.Abs(va-vb)/denom)
}

func conditionMatch(a, b domain.Condition) float64 {
	diff := a.Rank() - b.Rank()
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/4
}

func (s *Scorer) distanceComponent(d *float64) float64 {
	if d == nil {
		return neutralDistanceComponent
	}
	switch s.zones.Classify(*d) {
	case geo.ZoneVeryClose:
		return 1.0
	case geo.ZoneClose:
		return 0.85
	case geo.ZoneModerate:
		return 0.65
	case geo.ZoneFar:
		return 0.4
	case geo.ZoneVeryFar:
		return 0.15
	default:
		return 0
	}
}

func trustComponent(a, b *domain.UserProfile) float64 {
	if a == nil || b == nil {
		return neutralTrustComponent
	}
	min := math.Min(a.TrustScore, b.TrustScore)
	if min < 0 {
		min = 0
	}
	if min > 100 {
		min = 100
	}
	return min / 100
}

// desireFor rates how much wanter's declared desires are satisfied by
// offered's category and tags: 1 on a match, 0.25 when indifferent (no
// declared desires), 0 when desires exist but none match.
func desireFor(wanter, offered domain.Listing) float64 {
	if len(wanter.DesiredItems) == 0 {
		return indifferentDesire
	}
	if itemsMatch(wanter.DesiredItems, offered) {
		return 1
	}
	return 0
}

// itemsMatch reports whether any of the item tags matches the listing's
// category or declared tags.
func itemsMatch(items []string, l domain.Listing) bool {
	for _, item := range items {
		if item == "" {
			continue
		}
		if item == l.CategoryID {
			return true
		}
		for _, tag := range l.Tags {
			if item == tag {
				return true
			}
		}
	}
	return false
}

func travelLimit(a, b *domain.UserProfile) (float64, bool) {
	limit := math.Inf(1)
	found := false
	if a != nil && a.MaxTravelKm != nil {
		limit = *a.MaxTravelKm
		found = true
	}
	if b != nil && b.MaxTravelKm != nil && *b.MaxTravelKm < limit {
		limit = *b.MaxTravelKm
		found = true
	}
	return limit, found
}

func listingDistance(a, b domain.Listing) *float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return nil
	}
	if !geo.Valid(*a.Latitude, *a.Longitude) || !geo.Valid(*b.Latitude, *b.Longitude) {
		// Invalid coordinates propagate as location-unknown.
		return nil
	}
	d := geo.DistanceKm(
		geo.Point{Lat: *a.Latitude, Lng: *a.Longitude},
		geo.Point{Lat: *b.Latitude, Lng: *b.Longitude},
	)
	return &d
}

type componentFactor struct {
	weight float64
	value  float64
	reason string
}

// strongReasons returns one tag per sub-score at or above the strong
// threshold, ordered by weight descending with declaration order as the
// stable tie-break. The distance tag names the zone itself.
func (s *Scorer) strongReasons(c domain.ComponentScores, d *float64) []string {
	distanceReason := string(geo.ZoneUnknown)
	if d != nil {
		distanceReason = string(s.zones.Classify(*d))
	}

	factors := []componentFactor{
		{s.weights.ValueBalance, c.ValueBalance, ReasonValueMatch},
		{s.weights.CategoryAffinity, c.CategoryAffinity, ReasonCategoryMatch},
		{s.weights.ConditionMatch, c.ConditionMatch, ReasonConditionMatch},
		{s.weights.DistanceScore, c.DistanceScore, distanceReason},
		{s.weights.TrustScore, c.TrustScore, ReasonTrustedOwners},
		{s.weights.DesireMatch, c.DesireMatch, ReasonDesireMatch},
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].weight > factors[j].weight
	})

	var reasons []string
	for _, f := range factors {
		if f.value >= strongReasonThreshold {
			reasons = append(reasons, f.reason)
		}
	}
	return reasons
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
