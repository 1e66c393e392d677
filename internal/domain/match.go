package domain

// Direction labels whether a pair works in both directions or only
// donor→recipient (free/donation listings).
const (
	DirectionTwoWay = "two_way"
	DirectionOneWay = "one_way"
)

// ComponentScores breaks a pair score into its weighted sub-scores, each
// normalised to [0,1].
type ComponentScores struct {
	ValueBalance     float64 `json:"value_balance"`
	CategoryAffinity float64 `json:"category_affinity"`
	ConditionMatch   float64 `json:"condition_match"`
	DistanceScore    float64 `json:"distance_score"`
	TrustScore       float64 `json:"trust_score"`
	DesireMatch      float64 `json:"desire_match"`
}

// PairSuggestion is an ephemeral scored match between two listings, seen from
// the seed's perspective. DistanceKm is nil when either side has no
// coordinates.
type PairSuggestion struct {
	SeedID      string          `json:"seed_id"`
	CandidateID string          `json:"candidate_id"`
	Score       float64         `json:"score"`
	DistanceKm  *float64        `json:"distance_km"`
	Direction   string          `json:"direction"`
	Components  ComponentScores `json:"components"`
	Reasons     []string        `json:"reasons"`
}

// Chain is a closed exchange cycle L1→L2→…→Lk→L1 in which every owner appears
// exactly once. Listings holds the canonical rotation (smallest listing ID
// first); Edges[i] is the suggestion for Listings[i]→Listings[(i+1)%k].
type Chain struct {
	Listings         []string         `json:"listings"`
	Edges            []PairSuggestion `json:"edges"`
	TotalDistanceKm  float64          `json:"total_distance_km"`
	MinEdgeScore     float64          `json:"min_edge_score"`
	ValueSpread      float64          `json:"value_spread"`
	FeasibilityScore float64          `json:"feasibility_score"`
}
