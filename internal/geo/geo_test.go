package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	assert.True(t, Valid(0, 0))
	assert.True(t, Valid(90, 180))
	assert.True(t, Valid(-90, -180))
	assert.False(t, Valid(90.01, 0))
	assert.False(t, Valid(-90.01, 0))
	assert.False(t, Valid(0, 180.01))
	assert.False(t, Valid(0, -180.01))
}

func TestDistanceKm(t *testing.T) {
	geneva := Point{Lat: 46.2044, Lng: 6.1432}
	zurich := Point{Lat: 47.3769, Lng: 8.5417}

	d := DistanceKm(geneva, zurich)
	// Road signs say ~277 km; great circle is shorter.
	assert.InDelta(t, 224, d, 5)

	nearby := Point{Lat: 46.21, Lng: 6.15}
	assert.Less(t, DistanceKm(geneva, nearby), 2.0)

	assert.Zero(t, DistanceKm(geneva, geneva))
}

func TestDistanceSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		p := Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}
		q := Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}

		pq := DistanceKm(p, q)
		qp := DistanceKm(q, p)
		require.InDelta(t, pq, qp, 1e-6)
		require.False(t, math.IsNaN(pq))
		require.GreaterOrEqual(t, pq, 0.0)
	}
}

func TestDistanceNearAntipodal(t *testing.T) {
	d := DistanceKm(Point{Lat: 0, Lng: 0}, Point{Lat: 0, Lng: 180})
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1)
	assert.False(t, math.IsNaN(d))
}

func TestBearing(t *testing.T) {
	origin := Point{Lat: 46.0, Lng: 6.0}

	north := Bearing(origin, Point{Lat: 47.0, Lng: 6.0})
	assert.InDelta(t, 0, north, 0.01)

	east := Bearing(origin, Point{Lat: 46.0, Lng: 7.0})
	assert.InDelta(t, 90, east, 1)

	south := Bearing(origin, Point{Lat: 45.0, Lng: 6.0})
	assert.InDelta(t, 180, south, 0.01)

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		p := Point{Lat: rng.Float64()*160 - 80, Lng: rng.Float64()*360 - 180}
		q := Point{Lat: rng.Float64()*160 - 80, Lng: rng.Float64()*360 - 180}
		b := Bearing(p, q)
		require.GreaterOrEqual(t, b, 0.0)
		require.Less(t, b, 360.0)
	}
}

func TestZoneThresholdsClassify(t *testing.T) {
	zones := DefaultZoneThresholds()

	tests := []struct {
		distance float64
		want     Zone
	}{
		{-1, ZoneUnknown},
		{0, ZoneVeryClose},
		{5, ZoneVeryClose},
		{5.01, ZoneClose},
		{15, ZoneClose},
		{22, ZoneModerate},
		{30, ZoneModerate},
		{49, ZoneFar},
		{50, ZoneFar},
		{100, ZoneVeryFar},
		{100.01, ZoneOutOfRange},
		{5000, ZoneOutOfRange},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, zones.Classify(tt.distance), "distance %.2f", tt.distance)
	}
}

func TestZoneThresholdsAscending(t *testing.T) {
	assert.True(t, DefaultZoneThresholds().Ascending())
	assert.False(t, ZoneThresholds{}.Ascending())
	assert.False(t, ZoneThresholds{VeryCloseKm: 10, CloseKm: 5, ModerateKm: 30, FarKm: 50, VeryFarKm: 100}.Ascending())
	assert.False(t, ZoneThresholds{VeryCloseKm: -5, CloseKm: 15, ModerateKm: 30, FarKm: 50, VeryFarKm: 100}.Ascending())
}

func TestBoxAround(t *testing.T) {
	center := Point{Lat: 46.2044, Lng: 6.1432}
	box := BoxAround(center, 50)

	require.True(t, box.Contains(center))

	// Points inside the radius are always inside the box.
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		p := Point{
			Lat: center.Lat + (rng.Float64()*2-1)*0.4,
			Lng: center.Lng + (rng.Float64()*2-1)*0.5,
		}
		if DistanceKm(center, p) <= 50 {
			require.True(t, box.Contains(p), "point %+v at %.1f km", p, DistanceKm(center, p))
		}
	}

	// Points far outside the radius fall outside the box.
	assert.False(t, box.Contains(Point{Lat: 47.3769, Lng: 8.5417}))
}

func TestBoxAroundPole(t *testing.T) {
	box := BoxAround(Point{Lat: 89.9, Lng: 0}, 100)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
	assert.Equal(t, 90.0, box.MaxLat)
}

func TestBoxAroundAntimeridian(t *testing.T) {
	box := BoxAround(Point{Lat: 0, Lng: 179.9}, 100)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
	assert.True(t, box.Contains(Point{Lat: 0, Lng: -179.5}))
}

func TestBoxAroundNegativeRadius(t *testing.T) {
	center := Point{Lat: 10, Lng: 10}
	box := BoxAround(center, -5)
	assert.True(t, box.Contains(center))
	assert.InDelta(t, box.MinLat, box.MaxLat, 1e-9)
}
