// Package fallback drives ordered chains of estimate sources. Attempts run
// strictly one after another; the first success wins and a terminal
// heuristic guarantees a value when every attempt fails.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/saferoute/saferoute/internal/fallback"

// ErrTierUnavailable is recorded for an attempt that has no provider behind it.
var ErrTierUnavailable = errors.New("tier unavailable")

// Provenance tags which tier produced a value.
type Provenance string

const (
	PrimaryAI   Provenance = "primary_ai"
	SecondaryAI Provenance = "secondary_ai"
	Heuristic   Provenance = "heuristic"
)

// Valid reports whether p is a known provenance.
func (p Provenance) Valid() bool {
	switch p {
	case PrimaryAI, SecondaryAI, Heuristic:
		return true
	}
	return false
}

// Confidence is the display trust weighting for a provenance.
func (p Provenance) Confidence() int {
	switch p {
	case PrimaryAI:
		return 85
	case SecondaryAI:
		return 80
	default:
		return 65
	}
}

// Attempt is one ranked source in a chain. A nil Run fails with ErrTierUnavailable.
type Attempt[T any] struct {
	Tier Provenance
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Chain is an ordered list of attempts ending in a terminal heuristic.
type Chain[T any] struct {
	// Pipeline names the chain in logs and metrics ("safety", "eta").
	Pipeline string

	Attempts []Attempt[T]

	// Terminal produces the heuristic value. It cannot fail.
	Terminal func() T

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *Metrics
}

// TierFailure records why one attempt did not produce a value.
type TierFailure struct {
	Tier Provenance
	Name string
	Err  error
}

func (f TierFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Tier, f.Name, f.Err)
}

// Outcome is the tagged result of running a chain.
type Outcome[T any] struct {
	Value      T
	Provenance Provenance
	// Source names the attempt that produced Value, or "heuristic".
	Source   string
	Failures []TierFailure
}

// Run executes the chain. It never fails.
func Run[T any](ctx context.Context, chain Chain[T]) Outcome[T] {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fallback."+chain.Pipeline)
	defer span.End()

	var failures []TierFailure

	for _, attempt := range chain.Attempts {
		start := time.Now()
		value, err := runAttempt(ctx, chain.Timeout, attempt)
		elapsed := time.Since(start)

		if err == nil {
			chain.Metrics.record(ctx, chain.Pipeline, attempt.Tier, resultSuccess, elapsed)
			span.SetAttributes(attribute.String("estimation.provenance", string(attempt.Tier)))
			return Outcome[T]{
				Value:      value,
				Provenance: attempt.Tier,
				Source:     attempt.Name,
				Failures:   failures,
			}
		}

		chain.Metrics.record(ctx, chain.Pipeline, attempt.Tier, resultFailure, elapsed)
		span.AddEvent("tier failed", trace.WithAttributes(
			attribute.String("tier", string(attempt.Tier)),
			attribute.String("provider", attempt.Name),
			attribute.String("error", err.Error()),
		))
		chain.Logger.Warn().
			Err(err).
			Str("pipeline", chain.Pipeline).
			Str("tier", string(attempt.Tier)).
			Str("provider", attempt.Name).
			Dur("elapsed", elapsed).
			Msg("estimation tier failed")

		failures = append(failures, TierFailure{Tier: attempt.Tier, Name: attempt.Name, Err: err})
	}

	start := time.Now()
	value := chain.Terminal()
	chain.Metrics.record(ctx, chain.Pipeline, Heuristic, resultSuccess, time.Since(start))

	span.SetAttributes(attribute.String("estimation.provenance", string(Heuristic)))

	chain.Logger.Info().
		Str("pipeline", chain.Pipeline).
		Int("failed_tiers", len(failures)).
		Msg("serving heuristic estimate")

	return Outcome[T]{
		Value:      value,
		Provenance: Heuristic,
		Source:     string(Heuristic),
		Failures:   failures,
	}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, attempt Attempt[T]) (value T, err error) {
	if attempt.Run == nil {
		return value, ErrTierUnavailable
	}
	if err := ctx.Err(); err != nil {
		return value, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tier panicked: %v", r)
		}
	}()

	return attempt.Run(ctx)
}
