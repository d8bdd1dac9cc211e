// Package geo resolves driving distance between two coordinates, degrading to
// great-circle distance when the remote provider cannot answer.
package geo

import (
	"math"

	"ridescore/internal/types"
)

const earthRadiusMiles = 3959.0

// HaversineMiles returns the great-circle distance in miles between two
// points specified in decimal degrees.
func HaversineMiles(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMiles * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
