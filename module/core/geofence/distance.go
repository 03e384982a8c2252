// Package geofence holds the pure geometry and margin rules used to decide
// whether a location fix is inside a circular work-site boundary.
package geofence

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the mean Earth radius. orb/geo uses the WGS84
// equatorial radius instead, which overestimates site distances slightly.
const EarthRadiusMeters = 6371000

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b orb.Point) float64 {
	lat1, lat2 := toRad(a.Lat()), toRad(b.Lat())
	dLat := lat2 - lat1
	dLon := toRad(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h just outside [0,1] near antipodes
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
