package safety

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/saferoute/saferoute/internal/llm"
)

// Validation errors for AI replies.
var (
	ErrMissingScore = errors.New("reply has no score")
	ErrMissingTip   = errors.New("reply has no tip")
	ErrBadScore     = errors.New("reply score is not a finite number")
)

// BuildPrompt renders the scoring prompt. jsonOnly appends the stricter
// instruction used for the secondary provider.
func BuildPrompt(q Query, jsonOnly bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a personal safety assistant rating a planned trip.\n\n")
	fmt.Fprintf(&b, "Origin: %s\n", q.Origin)
	fmt.Fprintf(&b, "Destination: %s\n", q.Destination)
	fmt.Fprintf(&b, "Travel mode: %s\n", q.Mode)
	fmt.Fprintf(&b, "Current time: %s (%s)\n\n", q.At.Format("Monday 15:04"), partOfDay(q.At.Hour()))

	b.WriteString("Rate how safe this trip is on a scale from 1 to 10.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Never default to a middle score. Commit to a rating.\n")
	b.WriteString("- Use the full 1-10 scale.\n")
	b.WriteString("- Busy, well-lit main streets score 9-10.\n")
	b.WriteString("- Isolated or unlit areas score 1-4, especially at night.\n")
	b.WriteString("- Average residential areas score 6-8.\n")
	b.WriteString("- The tip is 2-3 sentences of practical advice for this trip.\n\n")
	b.WriteString(`Respond with strict JSON: {"score": <number 1-10>, "tip": "<advice>"}`)
	b.WriteString("\n")

	if jsonOnly {
		b.WriteString("Return JSON only. No markdown, no code fences, no commentary.\n")
	}

	return b.String()
}

func partOfDay(hour int) string {
	switch {
	case hour < 6 || hour >= 21:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	default:
		return "evening"
	}
}

type reply struct {
	Score llm.Number `json:"score"`
	Tip   string     `json:"tip"`
}

// ParseReply validates a model completion. With clamp set, scores outside
// [MinScore, MaxScore] are pulled onto the scale and flagged.
func ParseReply(completion string, clamp bool) (Estimate, error) {
	var r reply
	if err := llm.DecodeObject(completion, &r); err != nil {
		return Estimate{}, err
	}

	if !r.Score.Set {
		return Estimate{}, ErrMissingScore
	}
	if math.IsNaN(r.Score.Value) || math.IsInf(r.Score.Value, 0) {
		return Estimate{}, ErrBadScore
	}
	tip := strings.TrimSpace(r.Tip)
	if tip == "" {
		return Estimate{}, ErrMissingTip
	}

	est := Estimate{Score: r.Score.Value, Explanation: tip}
	if clamp {
		clamped := math.Min(MaxScore, math.Max(MinScore, est.Score))
		est.Clamped = clamped != est.Score
		est.Score = clamped
	}
	return est, nil
}
