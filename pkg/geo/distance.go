package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// SphereRadius is the mean earth radius PostGIS uses for ST_DistanceSphere.
const SphereRadius = 6370986.0

// SphereDistance returns the great-circle distance in meters between two lon/lat
// points, matching ST_DistanceSphere.
func SphereDistance(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) * SphereRadius / orb.EarthRadius
}

// ValidLonLat reports whether lon/lat is a usable WGS84 coordinate.
func ValidLonLat(lon, lat float64) bool {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}
