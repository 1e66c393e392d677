// Package geo provides the great-circle primitives used by the matching
// engine: haversine distance, initial bearing, travel-zone classification and
// bounding boxes for candidate pre-filtering.
package geo

import "math"

// EarthRadiusKm is the mean spherical Earth radius used for all distances.
const EarthRadiusKm = 6371.0

// Point is a WGS-84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether lat/lng fall inside the WGS-84 ranges.
func Valid(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceKm returns the great-circle distance between p and q using the
// haversine formula. Equal points yield exactly 0.
func DistanceKm(p, q Point) float64 {
	if p == q {
		return 0
	}

	lat1 := radians(p.Lat)
	lat2 := radians(q.Lat)
	dLat := radians(q.Lat - p.Lat)
	dLng := radians(q.Lng - p.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// Floating error can push h a hair outside [0,1]; clamp so Asin never
	// produces NaN for near-antipodal or near-coincident points.
	if h > 1 {
		h = 1
	} else if h < 0 {
		h = 0
	}

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing from p to q in degrees, normalised to
// [0,360).
func Bearing(p, q Point) float64 {
	lat1 := radians(p.Lat)
	lat2 := radians(q.Lat)
	dLng := radians(q.Lng - p.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := degrees(math.Atan2(y, x))
	deg = math.Mod(deg+360, 360)
	if deg == 360 {
		deg = 0
	}
	return deg
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
