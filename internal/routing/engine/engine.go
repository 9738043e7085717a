// Package engine builds the configured routing provider.
package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/config"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/routing/openrouteservice"
	"github.com/saferoute/saferoute/internal/routing/osrm"
)

// Provider kinds accepted in config.RoutingConfig.Provider.
const (
	KindOSRM             = "osrm"
	KindOpenRouteService = "openrouteservice"
	KindNone             = "none"
)

// New returns the routing provider named by cfg.Provider. KindNone yields a
// nil provider, so every route becomes a straight-line estimate.
func New(cfg config.RoutingConfig, registry *resilience.Registry, log zerolog.Logger) (routing.Provider, error) {
	switch cfg.Provider {
	case KindOSRM:
		urls := map[routing.Mode]string{}
		for mode, u := range map[routing.Mode]string{
			routing.ModeWalking: cfg.WalkingURL,
			routing.ModeCycling: cfg.CyclingURL,
			routing.ModeDriving: cfg.DrivingURL,
		} {
			if u != "" {
				urls[mode] = u
			}
		}
		if len(urls) == 0 {
			return nil, fmt.Errorf("osrm provider needs at least one base URL")
		}
		return osrm.NewClient(osrm.ClientConfig{
			BaseURLs: urls,
			Timeout:  cfg.Timeout,
			Registry: registry,
			Logger:   log,
		}), nil
	case KindOpenRouteService:
		if cfg.ORSAPIKey == "" {
			return nil, fmt.Errorf("ORS_API_KEY is required for the openrouteservice provider")
		}
		return openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.ORSAPIKey,
			BaseURL:  cfg.ORSBaseURL,
			Timeout:  cfg.Timeout,
			Registry: registry,
			Logger:   log,
		}), nil
	case KindNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown routing provider %q", cfg.Provider)
}
