package generator

// Config drives the synthetic dataset generator.
type Config struct {
	NumUsers      int
	NumListings   int
	OneWayChance  float64 // fraction of free/donation listings
	NoCoordChance float64 // fraction of listings without coordinates
	Seed          int64
}

// DefaultConfig returns baseline settings that produce a dataset dense enough
// for chain search to find cycles.
func DefaultConfig() Config {
	return Config{
		NumUsers:      2000,
		NumListings:   10000,
		OneWayChance:  0.08,
		NoCoordChance: 0.05,
		Seed:          42,
	}
}
