// Package osrm provides a client for OSRM-compatible route servers.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// profiles maps travel modes to the OSRM profile path segment.
var profiles = map[routing.Mode]string{
	routing.ModeWalking: "foot",
	routing.ModeCycling: "bike",
	routing.ModeDriving: "driving",
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURLs holds one server per mode. Modes without an entry are unsupported.
	BaseURLs map[routing.Mode]string

	// HTTPClient overrides the per-mode resilient clients (optional).
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client routes each mode against its own OSRM server.
type Client struct {
	baseURLs map[routing.Mode]string
	clients  map[routing.Mode]HTTPDoer
	logger   zerolog.Logger
}

// NewClient creates a new OSRM client. Every mode gets its own resilient
// HTTP client so one failing server does not trip the others' breakers.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURLs: make(map[routing.Mode]string, len(cfg.BaseURLs)),
		clients:  make(map[routing.Mode]HTTPDoer, len(cfg.BaseURLs)),
		logger:   cfg.Logger,
	}

	for mode, baseURL := range cfg.BaseURLs {
		if baseURL == "" {
			continue
		}
		c.baseURLs[mode] = strings.TrimRight(baseURL, "/")

		if cfg.HTTPClient != nil {
			c.clients[mode] = cfg.HTTPClient
			continue
		}
		clientCfg := resilience.DefaultClientConfig(ProviderName + "-" + string(mode))
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		c.clients[mode] = resilience.NewClient(clientCfg)
	}

	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SupportedModes returns the modes that have a configured server.
func (c *Client) SupportedModes() []routing.Mode {
	modes := make([]routing.Mode, 0, len(c.baseURLs))
	for _, m := range routing.AllModes {
		if _, ok := c.baseURLs[m]; ok {
			modes = append(modes, m)
		}
	}
	return modes
}

// GetDirections retrieves a route between two points.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, &routing.Error{Provider: ProviderName, Code: "INVALID_ORIGIN", Message: "invalid origin coordinates", Err: err}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &routing.Error{Provider: ProviderName, Code: "INVALID_DESTINATION", Message: "invalid destination coordinates", Err: err}
	}

	baseURL, ok := c.baseURLs[req.Mode]
	if !ok {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "UNSUPPORTED_MODE",
			Message:  fmt.Sprintf("no OSRM server configured for mode %q", req.Mode),
			Err:      routing.ErrUnsupportedMode,
		}
	}

	// OSRM takes {lon},{lat} pairs.
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		baseURL, profiles[req.Mode],
		req.Origin.Lon, req.Origin.Lat,
		req.Destination.Lon, req.Destination.Lat,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("mode", string(req.Mode)).
		Str("origin", req.Origin.String()).
		Str("destination", req.Destination.String()).
		Msg("requesting route from OSRM")

	resp, err := c.clients[req.Mode].Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var osrmResp routeResponse
	if err := json.Unmarshal(body, &osrmResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, statusError(resp.StatusCode, "")
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || osrmResp.Code != codeOK {
		return nil, codeError(resp.StatusCode, osrmResp)
	}

	result := toDirectionsResponse(&osrmResp)

	c.logger.Debug().
		Str("mode", string(req.Mode)).
		Int("route_count", len(result.Routes)).
		Msg("received route from OSRM")

	return result, nil
}

// routeResponse is the OSRM /route/v1 response body.
type routeResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Legs     []struct {
		Summary string `json:"summary"`
	} `json:"legs"`
}

const (
	codeOK      = "Ok"
	codeNoRoute = "NoRoute"
)

func codeError(status int, resp routeResponse) error {
	switch resp.Code {
	case codeNoRoute, "NoSegment":
		return &routing.Error{Provider: ProviderName, Code: "NO_ROUTE", Message: resp.Message, Err: routing.ErrNoRouteFound}
	case "InvalidQuery", "InvalidValue", "InvalidOptions":
		return &routing.Error{Provider: ProviderName, Code: "BAD_REQUEST", Message: resp.Message, Err: routing.ErrInvalidCoordinates}
	}
	return statusError(status, resp.Message)
}

func statusError(status int, message string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &routing.Error{Provider: ProviderName, Code: "RATE_LIMIT", Message: "API rate limit exceeded, please try again later", Err: routing.ErrRateLimitExceeded}
	case status >= 500:
		return &routing.Error{Provider: ProviderName, Code: fmt.Sprintf("SERVER_%d", status), Message: "routing provider is temporarily unavailable", Err: routing.ErrProviderUnavailable}
	}
	if message == "" {
		message = fmt.Sprintf("routing provider returned status %d", status)
	}
	return &routing.Error{Provider: ProviderName, Code: fmt.Sprintf("HTTP_%d", status), Message: message, Err: routing.ErrProviderUnavailable}
}

// toDirectionsResponse converts the OSRM answer to lat/lon domain routes.
func toDirectionsResponse(resp *routeResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Routes))
	for i := range resp.Routes {
		r := &resp.Routes[i]
		route := routing.Route{
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
		}
		if r.Geometry != nil {
			if ls, ok := r.Geometry.Geometry().(orb.LineString); ok {
				route.Geometry = make([]routing.Coordinate, len(ls))
				for j, p := range ls {
					route.Geometry[j] = routing.Coordinate{Lat: p.Lat(), Lon: p.Lon()}
				}
			}
		}
		if len(r.Legs) > 0 {
			route.Summary = r.Legs[0].Summary
		}
		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}
