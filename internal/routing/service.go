package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider. A nil provider makes every
	// acquisition fall back to the straight-line estimate.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache routing data (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.0001 ~ 11m).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration

	// AcquireTimeout bounds one Acquire call including provider retries
	// (default: 12 seconds). On expiry the straight-line estimate is used.
	AcquireTimeout time.Duration
}

// Service acquires routes with caching, plausibility checking and a
// straight-line fallback.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	acquireTimeout  time.Duration

	flight singleflight.Group

	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.0001
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout == 0 {
		acquireTimeout = 12 * time.Second
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		acquireTimeout:  acquireTimeout,
		cache:           make(map[string]*cachedDirections),
	}
}

// Acquire returns a validated route for one mode. It never fails: any
// provider error, empty answer or invalid input yields the straight-line
// estimate, and an implausible upstream duration is replaced by the
// speed-model expectation.
func (s *Service) Acquire(ctx context.Context, origin, destination Coordinate, mode Mode) RouteResult {
	ctx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	resp, err := s.GetDirections(ctx, DirectionsRequest{Origin: origin, Destination: destination, Mode: mode})
	if err != nil || resp == nil || len(resp.Routes) == 0 {
		ev := s.logger.Warn().
			Str("mode", string(mode)).
			Str("origin", origin.String()).
			Str("destination", destination.String())
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("routing provider gave no route, using straight-line estimate")
		return StraightLine(origin, destination, mode)
	}

	route := resp.Routes[0]
	geometry := route.Geometry
	if len(geometry) < 2 {
		geometry = []Coordinate{origin, destination}
	}

	result := RouteResult{
		Mode:            mode,
		Geometry:        append([]Coordinate(nil), geometry...),
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		Quality:         QualityRouted,
		Provider:        resp.Provider,
	}

	verdict := CheckPlausibility(route.DistanceMeters, route.DurationSeconds, mode)
	if verdict.Corrected {
		s.logger.Info().
			Str("mode", string(mode)).
			Float64("distance_m", route.DistanceMeters).
			Float64("upstream_duration_s", route.DurationSeconds).
			Float64("corrected_duration_s", verdict.DurationSeconds).
			Msg("corrected implausible route duration")
		return result.WithDuration(verdict.DurationSeconds, verdict.Reason)
	}

	return result
}

// AcquireAll acquires routes for every requested mode concurrently.
func (s *Service) AcquireAll(ctx context.Context, origin, destination Coordinate, modes []Mode) map[Mode]RouteResult {
	results := make([]RouteResult, len(modes))

	g, gctx := errgroup.WithContext(ctx)
	for i, mode := range modes {
		g.Go(func() error {
			results[i] = s.Acquire(gctx, origin, destination, mode)
			return nil
		})
	}
	_ = g.Wait() // Acquire never fails

	out := make(map[Mode]RouteResult, len(modes))
	for i, mode := range modes {
		out[mode] = results[i]
	}
	return out
}

// GetDirections returns route directions between two points.
// Uses cached data if available and not expired.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if s.provider == nil {
		return nil, &Error{
			Provider: "none",
			Code:     "NOT_CONFIGURED",
			Message:  "no routing provider configured",
			Err:      ErrProviderUnavailable,
		}
	}

	if err := req.Origin.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      err,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      err,
		}
	}

	cacheKey := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for directions")
		return cached.response, nil
	}
	s.mu.RUnlock()

	// Concurrent misses for the same key share one upstream call. A caller
	// whose context ends stops waiting even if the provider does not.
	ch := s.flight.DoChan(cacheKey, func() (any, error) {
		return s.fetchDirections(ctx, req, cacheKey)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*DirectionsResponse), nil
	case <-ctx.Done():
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "TIMEOUT",
			Message:  "routing provider did not answer in time",
			Err:      ctx.Err(),
		}
	}
}

// fetchDirections fetches directions from provider and updates cache.
func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*DirectionsResponse, error) {
	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit after double-check")
		return cached.response, nil
	}
	s.mu.RUnlock()

	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Str("mode", string(req.Mode)).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("mode", string(req.Mode)).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch directions")

		s.mu.RLock()
		cached, ok := s.cache[cacheKey]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Str("cache_key", cacheKey).
				Msg("serving stale directions data due to provider error")
			return cached.response, nil
		}

		return nil, err
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[cacheKey] = &cachedDirections{
		response:  resp,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded(now)
	s.mu.Unlock()

	s.logger.Debug().
		Str("cache_key", cacheKey).
		Int("route_count", len(resp.Routes)).
		Msg("cached directions response")

	return resp, nil
}

// cacheKey generates a cache key for a routing request.
// Format: {mode}:{gridOriginLat},{gridOriginLon}:{gridDestLat},{gridDestLon}.
func (s *Service) cacheKey(req DirectionsRequest) string {
	gridOriginLat := math.Floor(req.Origin.Lat/s.cacheGridSize) * s.cacheGridSize
	gridOriginLon := math.Floor(req.Origin.Lon/s.cacheGridSize) * s.cacheGridSize
	gridDestLat := math.Floor(req.Destination.Lat/s.cacheGridSize) * s.cacheGridSize
	gridDestLon := math.Floor(req.Destination.Lon/s.cacheGridSize) * s.cacheGridSize

	return fmt.Sprintf("%s:%.4f,%.4f:%.4f,%.4f",
		req.Mode,
		gridOriginLat, gridOriginLon,
		gridDestLat, gridDestLon,
	)
}

// cleanupIfNeeded removes expired entries. Callers hold s.mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired routing cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.ProviderName(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}
