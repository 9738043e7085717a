package eta

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/saferoute/saferoute/internal/fallback"
	"github.com/saferoute/saferoute/internal/routing"
)

// Time-of-day factors.
const (
	DrivingRushFactor  = 1.3
	DrivingNightFactor = 0.85
	CyclingNightFactor = 1.15
	CyclingRushFactor  = 1.1
	WalkingNightFactor = 1.2

	// WalkingLongDistanceMeters triggers WalkingLongDistanceStep.
	WalkingLongDistanceMeters = 3000.0
	WalkingLongDistanceStep   = 0.1
	WalkingMaxFactor          = 1.3
)

// Access time added at the destination, in seconds.
const (
	DrivingAccessSeconds = 300.0
	CyclingAccessSeconds = 120.0
)

// IsRushHour reports whether hour falls in 07-09 or 17-19 inclusive.
func IsRushHour(hour int) bool {
	return (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)
}

// IsNight reports whether hour is before 06:00 or after 21:59.
func IsNight(hour int) bool {
	return hour < 6 || hour > 21
}

// TimeBucket names the part of day used in prompts.
func TimeBucket(hour int) string {
	switch {
	case IsNight(hour):
		return "night"
	case hour < 8:
		return "early-morning"
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	default:
		return "evening"
	}
}

// AdjustmentFactor returns the travel-time multiplier for the mode at the
// given hour. Modifiers are applied in sequence and the last one that
// applies wins.
func AdjustmentFactor(mode routing.Mode, hour int, distanceMeters float64) float64 {
	factor := 1.0

	switch mode {
	case routing.ModeDriving:
		if IsRushHour(hour) {
			factor = DrivingRushFactor
		} else if IsNight(hour) {
			factor = DrivingNightFactor
		}
	case routing.ModeCycling:
		if IsNight(hour) {
			factor = CyclingNightFactor
		}
		if IsRushHour(hour) {
			factor = CyclingRushFactor
		}
	case routing.ModeWalking:
		if IsNight(hour) {
			factor = WalkingNightFactor
		}
		if distanceMeters > WalkingLongDistanceMeters {
			factor = math.Min(factor+WalkingLongDistanceStep, WalkingMaxFactor)
		}
	}

	return factor
}

// AccessTimeSeconds returns the destination access time for the mode.
func AccessTimeSeconds(mode routing.Mode) float64 {
	switch mode {
	case routing.ModeDriving:
		return DrivingAccessSeconds
	case routing.ModeCycling:
		return CyclingAccessSeconds
	default:
		return 0
	}
}

// Heuristic computes the deterministic estimate for q:
// adjusted = round(route duration × factor) + access time.
func Heuristic(q Query) Estimate {
	at := q.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	hour := at.Hour()

	factor := AdjustmentFactor(q.Mode, hour, q.DistanceMeters)
	base := math.Round(q.RouteDurationSeconds * factor)
	access := AccessTimeSeconds(q.Mode)

	return Estimate{
		Mode:                    q.Mode,
		RouteDurationSeconds:    q.RouteDurationSeconds,
		BaseDurationSeconds:     base,
		AdjustedDurationSeconds: base + access,
		DepartAt:                at,
		Notes:                   heuristicNotes(q.Mode, hour, factor, access),
		Provenance:              fallback.Heuristic,
	}.Arrive()
}

func heuristicNotes(mode routing.Mode, hour int, factor, access float64) string {
	var parts []string

	switch {
	case factor > 1:
		parts = append(parts, fmt.Sprintf("Allowing %d%% extra for %s conditions.", int(math.Round((factor-1)*100)), TimeBucket(hour)))
	case factor < 1:
		parts = append(parts, fmt.Sprintf("Roads are usually quieter at %s.", TimeBucket(hour)))
	default:
		parts = append(parts, "No time-of-day adjustment.")
	}

	switch mode {
	case routing.ModeDriving:
		parts = append(parts, fmt.Sprintf("Includes %d min to park and walk.", int(access/60)))
	case routing.ModeCycling:
		parts = append(parts, fmt.Sprintf("Includes %d min to lock your bike.", int(access/60)))
	}

	parts = append(parts, "Offline estimate.")
	return strings.Join(parts, " ")
}
