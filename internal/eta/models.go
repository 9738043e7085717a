// Package eta estimates door-to-door travel time for a routed trip.
package eta

import (
	"time"

	"github.com/saferoute/saferoute/internal/fallback"
	"github.com/saferoute/saferoute/internal/routing"
)

// ClockFormat is the display format of ArrivalClock.
const ClockFormat = "15:04"

// Query identifies one ETA request.
type Query struct {
	Origin      string
	Destination string
	Mode        routing.Mode

	// RouteDurationSeconds is the validated duration from route acquisition.
	RouteDurationSeconds float64
	DistanceMeters       float64

	// At is the departure time in the traveller's zone; its Hour drives the
	// heuristic. Zero means now in UTC.
	At time.Time
}

// Estimate is a travel-time prediction.
//
// BaseDurationSeconds is the in-motion travel time after time-of-day
// adjustment. AdjustedDurationSeconds adds the destination access time
// (parking, bike racks) and is never below BaseDurationSeconds. Walking
// carries no access time, so the two are equal.
type Estimate struct {
	Mode                    routing.Mode        `json:"mode"`
	RouteDurationSeconds    float64             `json:"routeDurationSeconds"`
	BaseDurationSeconds     float64             `json:"baseDurationSeconds"`
	AdjustedDurationSeconds float64             `json:"adjustedDurationSeconds"`
	DepartAt                time.Time           `json:"departAt"`
	ArrivalAt               time.Time           `json:"arrivalAt"`
	ArrivalClock            string              `json:"arrivalClock"`
	Notes                   string              `json:"notes"`
	Provenance              fallback.Provenance `json:"provenance"`
	Corrected               bool                `json:"corrected,omitempty"`
	CorrectionReason        string              `json:"correctionReason,omitempty"`
}

// Confidence is the display trust weighting of the estimate.
func (e Estimate) Confidence() int {
	return e.Provenance.Confidence()
}

// Arrive sets the arrival fields from DepartAt and AdjustedDurationSeconds.
func (e Estimate) Arrive() Estimate {
	e.ArrivalAt = e.DepartAt.Add(time.Duration(e.AdjustedDurationSeconds) * time.Second)
	e.ArrivalClock = e.ArrivalAt.Format(ClockFormat)
	return e
}

// WithBase returns a copy with the travel time replaced by baseSeconds and
// the access time re-applied, flagged as corrected.
func (e Estimate) WithBase(baseSeconds float64, reason string) Estimate {
	e.BaseDurationSeconds = baseSeconds
	e.AdjustedDurationSeconds = baseSeconds + AccessTimeSeconds(e.Mode)
	e.Corrected = true
	e.CorrectionReason = reason
	return e.Arrive()
}
