package geo

import "math"

// BoundingBox is an axis-aligned lat/lng rectangle used as a cheap
// pre-filter before the exact haversine test.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoxAround returns the bounding box covering a circle of radiusKm around
// center. Latitude bounds clamp at the poles; when the longitude span would
// wrap the antimeridian the box widens to the full longitude range rather
// than splitting in two.
func BoxAround(center Point, radiusKm float64) BoundingBox {
	if radiusKm < 0 {
		radiusKm = 0
	}

	dLat := degrees(radiusKm / EarthRadiusKm)
	box := BoundingBox{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
	}

	cosLat := math.Cos(radians(center.Lat))
	if cosLat <= 1e-9 {
		// At the poles every meridian is within range.
		box.MinLng, box.MaxLng = -180, 180
		return box
	}

	dLng := degrees(radiusKm / (EarthRadiusKm * cosLat))
	if dLng >= 180 || center.Lng-dLng < -180 || center.Lng+dLng > 180 {
		box.MinLng, box.MaxLng = -180, 180
		return box
	}

	box.MinLng = center.Lng - dLng
	box.MaxLng = center.Lng + dLng
	return box
}

// Contains reports whether p lies inside the box (inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
