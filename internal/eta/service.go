package eta

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/fallback"
	"github.com/saferoute/saferoute/internal/llm"
)

// ServiceConfig holds configuration for the ETA service.
type ServiceConfig struct {
	// Primary and Secondary are the ranked AI providers. Either may be nil.
	Primary   llm.Provider
	Secondary llm.Provider

	// Cache memoizes AI-tier estimates (optional).
	Cache cache.Cache[Estimate]

	// CallTimeout bounds each AI call (default: 12 seconds).
	CallTimeout time.Duration

	Metrics *fallback.Metrics
	Logger  zerolog.Logger
}

// Service runs the three-tier ETA chain.
type Service struct {
	primary     llm.Provider
	secondary   llm.Provider
	cache       cache.Cache[Estimate]
	callTimeout time.Duration
	metrics     *fallback.Metrics
	logger      zerolog.Logger
}

// NewService creates a new ETA service.
func NewService(cfg ServiceConfig) *Service {
	callTimeout := cfg.CallTimeout
	if callTimeout == 0 {
		callTimeout = 12 * time.Second
	}

	c := cfg.Cache
	if c == nil {
		c = cache.Nop[Estimate]{}
	}

	return &Service{
		primary:     cfg.Primary,
		secondary:   cfg.Secondary,
		cache:       c,
		callTimeout: callTimeout,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Estimate returns a travel-time estimate for q. It never fails.
func (s *Service) Estimate(ctx context.Context, q Query) Estimate {
	if q.At.IsZero() {
		q.At = time.Now().UTC()
	}

	key := cacheKey(q)
	if est, ok := s.cache.Get(ctx, key); ok {
		s.logger.Debug().Str("cache_key", key).Msg("eta cache hit")
		est.DepartAt = q.At
		return est.Arrive()
	}

	out := fallback.Run(ctx, fallback.Chain[Estimate]{
		Pipeline: "eta",
		Attempts: []fallback.Attempt[Estimate]{
			s.attempt(fallback.PrimaryAI, s.primary, q, false),
			s.attempt(fallback.SecondaryAI, s.secondary, q, true),
		},
		Terminal: func() Estimate { return Heuristic(q) },
		Timeout:  s.callTimeout,
		Logger:   s.logger,
		Metrics:  s.metrics,
	})

	est := out.Value
	est.Provenance = out.Provenance

	if out.Provenance == fallback.Heuristic {
		return est
	}

	est.RouteDurationSeconds = q.RouteDurationSeconds
	est.DepartAt = q.At
	est = est.Arrive()
	s.cache.Set(ctx, key, est)

	return est
}

func (s *Service) attempt(tier fallback.Provenance, provider llm.Provider, q Query, jsonOnly bool) fallback.Attempt[Estimate] {
	a := fallback.Attempt[Estimate]{Tier: tier, Name: "none"}
	if provider == nil {
		return a
	}

	a.Name = provider.Name()
	a.Run = func(ctx context.Context) (Estimate, error) {
		completion, err := provider.Complete(ctx, llm.Request{
			Prompt:      BuildPrompt(q, jsonOnly),
			JSONMode:    true,
			Temperature: 0.2,
		})
		if err != nil {
			return Estimate{}, err
		}
		return ParseReply(completion, q.Mode)
	}
	return a
}

func cacheKey(q Query) string {
	return cache.Key(
		q.Origin,
		q.Destination,
		string(q.Mode),
		strconv.Itoa(q.At.Hour()),
		strconv.FormatFloat(q.RouteDurationSeconds, 'f', 0, 64),
	)
}
