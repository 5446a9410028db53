// Package location contains pure geographic helpers for travel estimation.
package location

import (
	"math"

	"dronequote/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points, rounded
// to the metre.
func DistanceKm(from, to types.Point) float64 {
	d := haversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
	return math.Round(d*1000) / 1000
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
