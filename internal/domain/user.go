package domain

// UserProfile is the read-only projection of a platform user consumed by the
// matching engine. Trust scores are produced upstream; the engine never
// mutates them.
type UserProfile struct {
	ID          string
	TrustScore  float64 // 0..100
	Latitude    *float64
	Longitude   *float64
	MaxTravelKm *float64 // nil means no declared travel limit
}
