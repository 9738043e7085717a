// Package journey plans a trip across travel modes: it acquires routes,
// scores safety, estimates arrival and keeps the modes consistent.
package journey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/saferoute/saferoute/internal/eta"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
)

const tracerName = "github.com/saferoute/saferoute/internal/journey"

// ErrInvalidLocation is returned when the origin or destination is unusable.
var ErrInvalidLocation = errors.New("invalid location")

// RouteAcquirer returns one route per mode and never fails.
type RouteAcquirer interface {
	AcquireAll(ctx context.Context, origin, destination routing.Coordinate, modes []routing.Mode) map[routing.Mode]routing.RouteResult
}

// SafetyScorer scores a trip and never fails.
type SafetyScorer interface {
	Score(ctx context.Context, q safety.Query) safety.Estimate
}

// TimeEstimator estimates travel time and never fails.
type TimeEstimator interface {
	Estimate(ctx context.Context, q eta.Query) eta.Estimate
}

// ZoneFinder finds danger zones touched by a route.
type ZoneFinder interface {
	AlongRoute(geometry []routing.Coordinate, at time.Time) []safety.DangerZone
}

// Config holds the planner's collaborators. Zones is optional.
type Config struct {
	Routes RouteAcquirer
	Safety SafetyScorer
	ETA    TimeEstimator
	Zones  ZoneFinder
	Logger zerolog.Logger
}

// Planner runs the full estimation pipeline for a trip.
type Planner struct {
	routes RouteAcquirer
	safety SafetyScorer
	eta    TimeEstimator
	zones  ZoneFinder
	logger zerolog.Logger
}

// NewPlanner creates a planner.
func NewPlanner(cfg Config) *Planner {
	return &Planner{
		routes: cfg.Routes,
		safety: cfg.Safety,
		eta:    cfg.ETA,
		zones:  cfg.Zones,
		logger: cfg.Logger,
	}
}

// Request is a trip to plan.
type Request struct {
	Origin      routing.Coordinate
	Destination routing.Coordinate

	// OriginLabel and DestinationLabel are the place names shown to the AI
	// providers. They default to the coordinates.
	OriginLabel      string
	DestinationLabel string

	// Modes defaults to every mode.
	Modes []routing.Mode

	// Now is the departure time in the traveller's zone. Zero means now in UTC.
	Now time.Time
}

// Option is the plan for one travel mode.
type Option struct {
	Mode   routing.Mode
	Route  routing.RouteResult
	Safety safety.Estimate
	ETA    eta.Estimate
	Zones  []safety.DangerZone
}

// Plan is the result of planning a trip, one option per requested mode in
// request order.
type Plan struct {
	Origin      routing.Coordinate
	Destination routing.Coordinate
	DepartAt    time.Time
	Options     []Option
}

// Option returns the option for mode.
func (p *Plan) Option(mode routing.Mode) (Option, bool) {
	for _, o := range p.Options {
		if o.Mode == mode {
			return o, true
		}
	}
	return Option{}, false
}

// Plan validates the request and runs routing, safety and ETA for every
// mode. Only invalid input is reported as an error.
func (p *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, fmt.Errorf("%w: origin: %v", ErrInvalidLocation, err)
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, fmt.Errorf("%w: destination: %v", ErrInvalidLocation, err)
	}

	modes, err := normalizeModes(req.Modes)
	if err != nil {
		return nil, err
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	originLabel := labelOr(req.OriginLabel, req.Origin)
	destinationLabel := labelOr(req.DestinationLabel, req.Destination)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "journey.plan", trace.WithAttributes(
		attribute.Int("journey.modes", len(modes)),
	))
	defer span.End()

	routes := ReconcileRoutes(p.routes.AcquireAll(ctx, req.Origin, req.Destination, modes))

	scores := make([]safety.Estimate, len(modes))
	estimates := make([]eta.Estimate, len(modes))

	g, gctx := errgroup.WithContext(ctx)
	for i, mode := range modes {
		route := routes[mode]
		g.Go(func() error {
			scores[i] = p.safety.Score(gctx, safety.Query{
				Origin:      originLabel,
				Destination: destinationLabel,
				Mode:        mode,
				At:          now,
			})
			return nil
		})
		g.Go(func() error {
			estimates[i] = p.eta.Estimate(gctx, eta.Query{
				Origin:               originLabel,
				Destination:          destinationLabel,
				Mode:                 mode,
				RouteDurationSeconds: route.DurationSeconds,
				DistanceMeters:       route.DistanceMeters,
				At:                   now,
			})
			return nil
		})
	}
	_ = g.Wait() // pipelines never fail

	byMode := make(map[routing.Mode]eta.Estimate, len(modes))
	for i, mode := range modes {
		byMode[mode] = estimates[i]
	}
	byMode = ReconcileEstimates(routes, byMode)

	plan := &Plan{
		Origin:      req.Origin,
		Destination: req.Destination,
		DepartAt:    now,
		Options:     make([]Option, len(modes)),
	}
	for i, mode := range modes {
		opt := Option{
			Mode:   mode,
			Route:  routes[mode],
			Safety: scores[i],
			ETA:    byMode[mode],
		}
		if p.zones != nil {
			opt.Zones = p.zones.AlongRoute(opt.Route.Geometry, now)
		}
		plan.Options[i] = opt

		p.logger.Debug().
			Str("mode", string(mode)).
			Str("route_quality", string(opt.Route.Quality)).
			Str("safety_provenance", string(opt.Safety.Provenance)).
			Str("eta_provenance", string(opt.ETA.Provenance)).
			Int("zones", len(opt.Zones)).
			Msg("planned journey option")
	}

	return plan, nil
}

func normalizeModes(modes []routing.Mode) ([]routing.Mode, error) {
	if len(modes) == 0 {
		return append([]routing.Mode(nil), routing.AllModes...), nil
	}

	seen := make(map[routing.Mode]bool, len(modes))
	out := make([]routing.Mode, 0, len(modes))
	for _, m := range modes {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", routing.ErrUnsupportedMode, m)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, nil
}

func labelOr(label string, c routing.Coordinate) string {
	if label != "" {
		return label
	}
	return c.String()
}
