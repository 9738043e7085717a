// Package safety scores how safe a trip feels and knows where the static
// danger zones are.
package safety

import (
	"time"

	"github.com/saferoute/saferoute/internal/fallback"
	"github.com/saferoute/saferoute/internal/routing"
)

// Score bounds of the nominal scale.
const (
	MinScore = 1.0
	MaxScore = 10.0

	// HeuristicScore is returned when no AI tier answers.
	HeuristicScore = 7.8
)

// HeuristicExplanation accompanies HeuristicScore.
const HeuristicExplanation = "Live safety analysis is unavailable right now. " +
	"Stay on main roads and well-lit streets, and share your trip with a guardian."

// Query identifies one safety scoring request.
type Query struct {
	// Origin and Destination are place labels or "lat,lon" strings.
	Origin      string
	Destination string
	Mode        routing.Mode
	At          time.Time
}

// Estimate is a safety score with its rationale and provenance.
type Estimate struct {
	Score       float64             `json:"score"`
	Explanation string              `json:"explanation"`
	Provenance  fallback.Provenance `json:"provenance"`
	// Clamped is set when the model's score was outside the nominal scale.
	Clamped bool `json:"clamped,omitempty"`
}

// Confidence is the display trust weighting of the estimate.
func (e Estimate) Confidence() int {
	return e.Provenance.Confidence()
}

// Heuristic returns the fixed estimate used when every AI tier fails.
func Heuristic() Estimate {
	return Estimate{
		Score:       HeuristicScore,
		Explanation: HeuristicExplanation,
		Provenance:  fallback.Heuristic,
	}
}
