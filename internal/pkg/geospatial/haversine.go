package geospatial

import (
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0

	// MetersPerDegree is the approximate length of one degree of latitude.
	MetersPerDegree = 111_000.0
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Euclidean is the straight-line distance in degrees over (lat, lon) pairs.
// It ignores projection and is what the discovery radius is calibrated for.
func Euclidean(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// DistanceFunc measures the distance between two coordinates. Its unit must
// match the radius it is compared against.
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

// Strategy resolves a named distance function: "euclidean" (degrees) or
// "haversine" (meters).
func Strategy(name string) (DistanceFunc, error) {
	switch name {
	case "", "euclidean":
		return Euclidean, nil
	case "haversine":
		return Haversine, nil
	default:
		return nil, fmt.Errorf("unknown distance strategy %q", name)
	}
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// RadiusForBox approximates the radius in meters that covers a box, using the
// larger half-span at ~111 km per degree.
func RadiusForBox(minLat, minLon, maxLat, maxLon float64) float64 {
	latRadius := (maxLat - minLat) * MetersPerDegree / 2
	lonRadius := (maxLon - minLon) * MetersPerDegree / 2
	return math.Max(latRadius, lonRadius)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
