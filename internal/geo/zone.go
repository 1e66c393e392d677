package geo

// Zone is a qualitative travel-distance bucket.
type Zone string

const (
	ZoneVeryClose  Zone = "very_close"
	ZoneClose      Zone = "close"
	ZoneModerate   Zone = "moderate"
	ZoneFar        Zone = "far"
	ZoneVeryFar    Zone = "very_far"
	ZoneOutOfRange Zone = "out_of_range"
	ZoneUnknown    Zone = "unknown"
)

// ZoneThresholds holds the upper bound in kilometres of each zone, smallest
// first. Distances beyond VeryFar classify as out of range.
type ZoneThresholds struct {
	VeryCloseKm float64
	CloseKm     float64
	ModerateKm  float64
	FarKm       float64
	VeryFarKm   float64
}

// DefaultZoneThresholds returns the policy defaults (5/15/30/50/100 km).
func DefaultZoneThresholds() ZoneThresholds {
	return ZoneThresholds{
		VeryCloseKm: 5,
		CloseKm:     15,
		ModerateKm:  30,
		FarKm:       50,
		VeryFarKm:   100,
	}
}

// Ascending reports whether the thresholds are strictly positive and ordered.
func (t ZoneThresholds) Ascending() bool {
	return t.VeryCloseKm > 0 &&
		t.CloseKm > t.VeryCloseKm &&
		t.ModerateKm > t.CloseKm &&
		t.FarKm > t.ModerateKm &&
		t.VeryFarKm > t.FarKm
}

// Classify buckets a non-negative distance into a Zone. Negative distances
// classify as unknown.
func (t ZoneThresholds) Classify(distanceKm float64) Zone {
	switch {
	case distanceKm < 0:
		return ZoneUnknown
	case distanceKm <= t.VeryCloseKm:
		return ZoneVeryClose
	case distanceKm <= t.CloseKm:
		return ZoneClose
	case distanceKm <= t.ModerateKm:
		return ZoneModerate
	case distanceKm <= t.FarKm:
		return ZoneFar
	case distanceKm <= t.VeryFarKm:
		return ZoneVeryFar
	default:
		return ZoneOutOfRange
	}
}
