// Package geo provides great-circle distance and angle conversion helpers.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the spherical model.
const EarthRadiusMeters = 6_371_000.0

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Haversine returns the great-circle distance in meters between two points.
// NaN inputs propagate to the result.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := ToRadians(lat1)
	lat2r := ToRadians(lat2)
	dLat := ToRadians(lat2 - lat1)
	dLon := ToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// MetersToLatDegrees converts a north-south distance to degrees of latitude.
func MetersToLatDegrees(m float64) float64 {
	return ToDegrees(m / EarthRadiusMeters)
}

// MetersToLonDegrees converts an east-west distance at the given latitude to
// degrees of longitude. Near the poles the value is capped at 180.
func MetersToLonDegrees(m, atLat float64) float64 {
	cos := math.Cos(ToRadians(atLat))
	if cos < 1e-6 {
		return 180
	}
	return math.Min(180, ToDegrees(m/(EarthRadiusMeters*cos)))
}
