package eta

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/saferoute/saferoute/internal/llm"
	"github.com/saferoute/saferoute/internal/routing"
)

// Validation errors for AI replies.
var (
	ErrMissingDuration      = errors.New("reply has no duration")
	ErrBadDuration          = errors.New("reply duration is not a positive finite number")
	ErrInconsistentDuration = errors.New("reply adjusted duration is below estimated duration")
)

// BuildPrompt renders the travel-time prompt. Durations are exchanged in
// minutes, which models handle more reliably than seconds.
func BuildPrompt(q Query, jsonOnly bool) string {
	var b strings.Builder
	hour := q.At.Hour()

	b.WriteString("You estimate realistic door-to-door travel times.\n\n")
	fmt.Fprintf(&b, "Origin: %s\n", q.Origin)
	fmt.Fprintf(&b, "Destination: %s\n", q.Destination)
	fmt.Fprintf(&b, "Travel mode: %s\n", q.Mode)
	fmt.Fprintf(&b, "Route distance: %.1f km\n", q.DistanceMeters/1000)
	fmt.Fprintf(&b, "Routed duration: %.0f minutes\n", q.RouteDurationSeconds/60)
	fmt.Fprintf(&b, "Departure: %s (%s)\n\n", q.At.Format("Monday 15:04"), TimeBucket(hour))

	b.WriteString("Consider:\n")
	b.WriteString("- Road type along the route.\n")
	b.WriteString("- Rush hour between 07:00-09:00 and 17:00-19:00.\n")
	b.WriteString("- Terrain and gradients.\n")
	b.WriteString("- Typical weather for the season.\n")
	fmt.Fprintf(&b, "- Destination access time (%s).\n\n", accessHint(q.Mode))

	b.WriteString("estimatedDuration is the travel time in motion. adjustedDuration adds destination access time.\n")
	b.WriteString(`Respond with strict JSON: {"estimatedDuration": <minutes>, "adjustedDuration": <minutes>, "notes": "<one or two sentences>"}`)
	b.WriteString("\n")

	if jsonOnly {
		b.WriteString("Return JSON only. No markdown, no code fences, no commentary.\n")
	}

	return b.String()
}

func accessHint(mode routing.Mode) string {
	switch mode {
	case routing.ModeDriving:
		return "finding parking and walking to the door"
	case routing.ModeCycling:
		return "locking the bike at a rack"
	default:
		return "none for walking"
	}
}

type reply struct {
	EstimatedDuration llm.Number `json:"estimatedDuration"`
	AdjustedDuration  llm.Number `json:"adjustedDuration"`
	Notes             string     `json:"notes"`
}

// ParseReply validates a model completion and converts it to seconds.
// Walking replies have their adjusted duration pinned to the estimated one.
func ParseReply(completion string, mode routing.Mode) (Estimate, error) {
	var r reply
	if err := llm.DecodeObject(completion, &r); err != nil {
		return Estimate{}, err
	}

	base, err := minutesToSeconds(r.EstimatedDuration)
	if err != nil {
		return Estimate{}, fmt.Errorf("estimatedDuration: %w", err)
	}
	adjusted, err := minutesToSeconds(r.AdjustedDuration)
	if err != nil {
		return Estimate{}, fmt.Errorf("adjustedDuration: %w", err)
	}

	if mode == routing.ModeWalking {
		adjusted = base
	}
	if adjusted < base {
		return Estimate{}, ErrInconsistentDuration
	}

	notes := strings.TrimSpace(r.Notes)
	if notes == "" {
		notes = "No notes provided."
	}

	return Estimate{
		Mode:                    mode,
		BaseDurationSeconds:     base,
		AdjustedDurationSeconds: adjusted,
		Notes:                   notes,
	}, nil
}

func minutesToSeconds(n llm.Number) (float64, error) {
	if !n.Set {
		return 0, ErrMissingDuration
	}
	if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) || n.Value <= 0 {
		return 0, ErrBadDuration
	}
	return math.Round(n.Value * 60), nil
}
