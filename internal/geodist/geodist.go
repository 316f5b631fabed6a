// Package geodist computes great-circle distances between WGS84 coordinates.
package geodist

import (
	"math"

	"github.com/twpayne/go-geom"
)

const earthRadiusKm = 6371.0

// Point builds a WGS84 point from latitude/longitude.
func Point(lat, lon float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
}

// HaversineKm returns the great-circle distance in kilometers between two
// points. Matches the earth_distance semantics the Postgres store relies on
// closely enough for the sub-kilometer duplicate threshold.
func HaversineKm(a, b *geom.Point) float64 {
	lat1 := a.Y() * math.Pi / 180
	lat2 := b.Y() * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.X() - a.X()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// BetweenKm is a convenience wrapper over raw coordinate pairs.
func BetweenKm(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineKm(Point(lat1, lon1), Point(lat2, lon2))
}
