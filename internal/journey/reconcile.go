package journey

import (
	"fmt"
	"math"

	"github.com/saferoute/saferoute/internal/eta"
	"github.com/saferoute/saferoute/internal/routing"
)

// ComparableDistanceRatio is how far the cycling distance may stray from the
// walking distance for the two routes to count as the same path.
const ComparableDistanceRatio = 0.2

// comparableDistance reports whether the cycling distance is within ±20% of the
// walking distance.
func comparableDistance(walkingMeters, cyclingMeters float64) bool {
	if walkingMeters <= 0 {
		return false
	}
	return math.Abs(cyclingMeters-walkingMeters) <= walkingMeters*ComparableDistanceRatio
}

// nominalCyclingSeconds is the cycling duration over distance at 15 km/h.
func nominalCyclingSeconds(distanceMeters float64) float64 {
	return math.Round(routing.ExpectedDurationSeconds(distanceMeters, routing.ModeCycling))
}

// ReconcileRoutes corrects a cycling route that is slower than a walking
// route of comparable distance. The input map is not modified; driving is
// never touched.
func ReconcileRoutes(routes map[routing.Mode]routing.RouteResult) map[routing.Mode]routing.RouteResult {
	out := make(map[routing.Mode]routing.RouteResult, len(routes))
	for m, r := range routes {
		out[m] = r
	}

	walk, okW := routes[routing.ModeWalking]
	bike, okC := routes[routing.ModeCycling]
	if !okW || !okC {
		return out
	}
	if !comparableDistance(walk.DistanceMeters, bike.DistanceMeters) || bike.DurationSeconds <= walk.DurationSeconds {
		return out
	}

	corrected := nominalCyclingSeconds(bike.DistanceMeters)
	out[routing.ModeCycling] = bike.WithDuration(corrected, fmt.Sprintf(
		"cycling duration %.0fs exceeded walking duration %.0fs over comparable distance",
		bike.DurationSeconds, walk.DurationSeconds))
	return out
}

// ReconcileEstimates applies the same rule to the in-motion travel times.
// Access time is left out of the comparison since walking carries none.
// A slow cycling estimate is re-derived at 15 km/h plus the cycling access
// time, and only when that is actually faster than what it replaces.
func ReconcileEstimates(routes map[routing.Mode]routing.RouteResult, estimates map[routing.Mode]eta.Estimate) map[routing.Mode]eta.Estimate {
	out := make(map[routing.Mode]eta.Estimate, len(estimates))
	for m, e := range estimates {
		out[m] = e
	}

	walkRoute, okWR := routes[routing.ModeWalking]
	bikeRoute, okCR := routes[routing.ModeCycling]
	walk, okW := estimates[routing.ModeWalking]
	bike, okC := estimates[routing.ModeCycling]
	if !okWR || !okCR || !okW || !okC {
		return out
	}
	if !comparableDistance(walkRoute.DistanceMeters, bikeRoute.DistanceMeters) ||
		bike.BaseDurationSeconds <= walk.BaseDurationSeconds {
		return out
	}

	nominal := nominalCyclingSeconds(bikeRoute.DistanceMeters)
	if nominal >= bike.BaseDurationSeconds {
		return out
	}

	out[routing.ModeCycling] = bike.WithBase(nominal, fmt.Sprintf(
		"cycling travel time %.0fs exceeded walking travel time %.0fs over comparable distance",
		bike.BaseDurationSeconds, walk.BaseDurationSeconds))
	return out
}
