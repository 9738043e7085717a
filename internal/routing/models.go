// Package routing acquires routes from an external routing engine and
// sanity-checks the durations it reports.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrUnsupportedMode indicates the provider has no profile for the requested mode.
	ErrUnsupportedMode = errors.New("unsupported travel mode")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves routes between two points for one travel mode.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
	// SupportedModes returns the travel modes this provider can route.
	SupportedModes() []Mode
}

// Mode is a travel mode.
type Mode string

const (
	ModeWalking Mode = "walking"
	ModeCycling Mode = "cycling"
	ModeDriving Mode = "driving"
)

// AllModes lists every travel mode in presentation order.
var AllModes = []Mode{ModeWalking, ModeCycling, ModeDriving}

// Valid reports whether m is a known travel mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeWalking, ModeCycling, ModeDriving:
		return true
	}
	return false
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
	return m, nil
}

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinate is within valid ranges.
func (c Coordinate) Validate() error {
	if c.Lat != c.Lat || c.Lon != c.Lon { // NaN
		return fmt.Errorf("%w: NaN component", ErrInvalidCoordinates)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidCoordinates, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidCoordinates, c.Lon)
	}
	return nil
}

// String formats the coordinate as "lat,lon" with six decimals.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// DirectionsRequest is the request sent to a routing provider.
type DirectionsRequest struct {
	Origin      Coordinate
	Destination Coordinate
	Mode        Mode
}

// DirectionsResponse is the raw provider answer, already converted to lat/lon order.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is a single upstream route.
type Route struct {
	Geometry        []Coordinate
	DistanceMeters  float64
	DurationSeconds float64
	Summary         string
}

// Quality describes how a RouteResult was obtained.
type Quality string

const (
	// QualityRouted means the upstream route was accepted as-is.
	QualityRouted Quality = "routed"
	// QualityCorrected means the upstream geometry was kept but its duration was replaced.
	QualityCorrected Quality = "corrected"
	// QualityEstimated means the route is a straight-line estimate.
	QualityEstimated Quality = "estimated"
)

// RouteResult is the validated route for one (origin, destination, mode) query.
// It is built once and never mutated afterwards; callers own their copy.
type RouteResult struct {
	Mode             Mode
	Geometry         []Coordinate
	DistanceMeters   float64
	DurationSeconds  float64
	Quality          Quality
	WasCorrected     bool
	CorrectionReason string
	Provider         string
}

// WithDuration returns a copy of r whose duration was replaced for the given reason.
func (r RouteResult) WithDuration(seconds float64, reason string) RouteResult {
	out := r
	out.Geometry = append([]Coordinate(nil), r.Geometry...)
	out.DurationSeconds = seconds
	out.WasCorrected = true
	out.CorrectionReason = reason
	if out.Quality == QualityRouted {
		out.Quality = QualityCorrected
	}
	return out
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
