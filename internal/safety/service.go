package safety

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/fallback"
	"github.com/saferoute/saferoute/internal/llm"
)

// ServiceConfig holds configuration for the safety scoring service.
type ServiceConfig struct {
	// Primary and Secondary are the ranked AI providers. Either may be nil.
	Primary   llm.Provider
	Secondary llm.Provider

	// Cache memoizes AI-tier estimates (optional, defaults to no caching).
	Cache cache.Cache[Estimate]

	// CallTimeout bounds each AI call (default: 12 seconds).
	CallTimeout time.Duration

	// ClampScores pulls out-of-range model scores onto the 1-10 scale.
	ClampScores bool

	Metrics *fallback.Metrics
	Logger  zerolog.Logger
}

// Service runs the three-tier safety scoring chain.
type Service struct {
	primary     llm.Provider
	secondary   llm.Provider
	cache       cache.Cache[Estimate]
	callTimeout time.Duration
	clamp       bool
	metrics     *fallback.Metrics
	logger      zerolog.Logger
}

// NewService creates a new safety scoring service.
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
		clamp:       cfg.ClampScores,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Score returns a safety estimate for the query. It never fails.
func (s *Service) Score(ctx context.Context, q Query) Estimate {
	if q.At.IsZero() {
		q.At = time.Now().UTC()
	}

	key := cache.Key(q.Origin, q.Destination, string(q.Mode))
	if est, ok := s.cache.Get(ctx, key); ok {
		s.logger.Debug().Str("cache_key", key).Msg("safety estimate cache hit")
		return est
	}

	out := fallback.Run(ctx, fallback.Chain[Estimate]{
		Pipeline: "safety",
		Attempts: []fallback.Attempt[Estimate]{
			s.attempt(fallback.PrimaryAI, s.primary, q, false),
			s.attempt(fallback.SecondaryAI, s.secondary, q, true),
		},
		Terminal: Heuristic,
		Timeout:  s.callTimeout,
		Logger:   s.logger,
		Metrics:  s.metrics,
	})

	est := out.Value
	est.Provenance = out.Provenance

	if out.Provenance != fallback.Heuristic {
		s.cache.Set(ctx, key, est)
	}

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
			Temperature: 0.4,
		})
		if err != nil {
			return Estimate{}, err
		}
		return ParseReply(completion, s.clamp)
	}
	return a
}
