package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/luckykangaroo/backend/internal/service"
)

// Dataset contains the generated users and listings.
type Dataset struct {
	Users    []service.UserInput    `json:"users"`
	Listings []service.ListingInput `json:"listings"`
}

// Generator produces synthetic exchange data aligned with the matching
// engine schema. Users cluster around Swiss cities; desired items follow a
// ring over the category set so multi-party cycles exist in every dataset.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

type city struct {
	name string
	lat  float64
	lng  float64
}

var cities = []city{
	{"Geneva", 46.2044, 6.1432},
	{"Lausanne", 46.5197, 6.6323},
	{"Bern", 46.9480, 7.4474},
	{"Zurich", 47.3769, 8.5417},
	{"Basel", 47.5596, 7.5886},
	{"Lucerne", 47.0502, 8.3093},
	{"Fribourg", 46.8065, 7.1620},
	{"Neuchatel", 46.9900, 6.9293},
	{"Sion", 46.2331, 7.3606},
	{"Winterthur", 47.5000, 8.7241},
}

var categories = []string{
	"books", "electronics", "furniture", "toys", "sports",
	"music", "garden", "clothing", "tools", "games",
}

var conditions = []string{"new", "excellent", "good", "fair", "poor"}

var titleFragments = []string{
	"vintage", "classic", "barely used", "handmade", "refurbished",
	"complete set of", "collector's", "sturdy", "compact", "portable",
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumUsers <= 0 {
		cfg.NumUsers = def.NumUsers
	}
	if cfg.NumListings <= 0 {
		cfg.NumListings = def.NumListings
	}
	if cfg.OneWayChance <= 0 {
		cfg.OneWayChance = def.OneWayChance
	}
	if cfg.NoCoordChance <= 0 {
		cfg.NoCoordChance = def.NoCoordChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesises users and listings. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	users := make([]service.UserInput, g.cfg.NumUsers)
	for i := 0; i < g.cfg.NumUsers; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		home := cities[g.rand.Intn(len(cities))]
		lat := home.lat + g.jitter(0.08)
		lng := home.lng + g.jitter(0.12)
		travel := []float64{10, 25, 50, 100}[g.rand.Intn(4)]

		users[i] = service.UserInput{
			ID:          g.stableID("user", i),
			TrustScore:  20 + g.rand.Float64()*80,
			Latitude:    &lat,
			Longitude:   &lng,
			MaxTravelKm: &travel,
		}
	}

	now := time.Now().UTC()
	listings := make([]service.ListingInput, g.cfg.NumListings)
	for i := 0; i < g.cfg.NumListings; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		owner := users[g.rand.Intn(len(users))]
		catIdx := g.rand.Intn(len(categories))
		category := categories[catIdx]
		// Desires point one step around the category ring, so listings of
		// category c want c+1, producing long exchange cycles. A second
		// desire on part of the corpus shortens some of them.
		desired := []string{categories[(catIdx+1)%len(categories)]}
		if g.rand.Float64() < 0.4 {
			desired = append(desired, categories[(catIdx+2)%len(categories)])
		}

		exchangeType := "barter"
		switch {
		case g.rand.Float64() < g.cfg.OneWayChance:
			if g.rand.Intn(2) == 0 {
				exchangeType = "donation"
			} else {
				exchangeType = "free"
			}
			desired = nil
		case g.rand.Float64() < 0.3:
			exchangeType = "both"
		}

		input := service.ListingInput{
			ID:             g.stableID("listing", i),
			OwnerID:        owner.ID,
			Title:          g.randomTitle(category),
			CategoryID:     category,
			Condition:      conditions[g.rand.Intn(len(conditions))],
			EstimatedValue: float64(10 + g.rand.Intn(490)),
			Currency:       "CHF",
			DesiredItems:   desired,
			ExchangeType:   exchangeType,
			Status:         "active",
		}

		if g.rand.Float64() >= g.cfg.NoCoordChance {
			lat := *owner.Latitude + g.jitter(0.01)
			lng := *owner.Longitude + g.jitter(0.01)
			input.Latitude = &lat
			input.Longitude = &lng
		}

		createdAt := now.Add(-time.Duration(g.rand.Intn(90*24)) * time.Hour)
		input.CreatedAt = &createdAt

		listings[i] = input
	}

	return Dataset{Users: users, Listings: listings}, nil
}

// stableID derives a deterministic UUID from the seed-ordered index, so
// repeated runs with the same seed produce identical datasets.
func (g *Generator) stableID(kind string, idx int) string {
	name := fmt.Sprintf("%s-%d-%d", kind, g.cfg.Seed, idx)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (g *Generator) jitter(scale float64) float64 {
	return (g.rand.Float64()*2 - 1) * scale
}

func (g *Generator) randomTitle(category string) string {
	return fmt.Sprintf("%s %s #%d",
		titleFragments[g.rand.Intn(len(titleFragments))],
		category,
		g.rand.Intn(1000),
	)
}
