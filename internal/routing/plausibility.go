package routing

import (
	"fmt"
	"math"

	"github.com/saferoute/saferoute/internal/geo"
)

// Speed model and correction bounds.
const (
	WalkingSpeedKmh = 5.0
	CyclingSpeedKmh = 15.0
	DrivingSpeedKmh = 50.0

	// MaxDurationRatio and MinDurationRatio bound an upstream duration
	// relative to the speed-model expectation.
	MaxDurationRatio = 2.0
	MinDurationRatio = 0.3

	// IndirectionFactor inflates straight-line distance to approximate road distance.
	IndirectionFactor = 1.2
)

// ExpectedSpeedKmh returns the nominal speed for a mode.
func ExpectedSpeedKmh(m Mode) float64 {
	switch m {
	case ModeCycling:
		return CyclingSpeedKmh
	case ModeDriving:
		return DrivingSpeedKmh
	default:
		return WalkingSpeedKmh
	}
}

// ExpectedDurationSeconds converts a distance to a duration using the speed model.
func ExpectedDurationSeconds(distanceMeters float64, m Mode) float64 {
	return distanceMeters / 1000 / ExpectedSpeedKmh(m) * 3600
}

// Plausibility is the verdict of CheckPlausibility.
type Plausibility struct {
	DurationSeconds float64
	Expected        float64
	Corrected       bool
	Reason          string
}

// CheckPlausibility compares an upstream duration with the speed model. A
// duration above MaxDurationRatio or below MinDurationRatio times the expected
// value is replaced by the rounded expectation.
func CheckPlausibility(distanceMeters, durationSeconds float64, m Mode) Plausibility {
	expected := ExpectedDurationSeconds(distanceMeters, m)
	p := Plausibility{DurationSeconds: durationSeconds, Expected: expected}

	switch {
	case durationSeconds > expected*MaxDurationRatio:
		p.Corrected = true
		p.Reason = fmt.Sprintf("upstream duration %.0fs exceeds %.1fx the %s expectation of %.0fs",
			durationSeconds, MaxDurationRatio, m, expected)
	case durationSeconds < expected*MinDurationRatio:
		p.Corrected = true
		p.Reason = fmt.Sprintf("upstream duration %.0fs is below %.1fx the %s expectation of %.0fs",
			durationSeconds, MinDurationRatio, m, expected)
	}

	if p.Corrected {
		p.DurationSeconds = math.Round(expected)
	}
	return p
}

// StraightLine builds the estimated route used when the provider fails.
func StraightLine(origin, destination Coordinate, m Mode) RouteResult {
	distance := geo.Haversine(origin.Lat, origin.Lon, destination.Lat, destination.Lon) * IndirectionFactor
	return RouteResult{
		Mode:            m,
		Geometry:        []Coordinate{origin, destination},
		DistanceMeters:  distance,
		DurationSeconds: math.Round(ExpectedDurationSeconds(distance, m)),
		Quality:         QualityEstimated,
	}
}
