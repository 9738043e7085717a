package main

import (
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/config"
	"github.com/saferoute/saferoute/internal/llm"
	"github.com/saferoute/saferoute/internal/llm/gemini"
	"github.com/saferoute/saferoute/internal/llm/openai"
	"github.com/saferoute/saferoute/internal/provider/resilience"
)

// newAIProviders builds the ranked AI tiers. A tier without an API key is
// left nil and fails immediately.
func newAIProviders(cfg config.AIConfig, registry *resilience.Registry, log zerolog.Logger) (primary, secondary llm.Provider) {
	if cfg.PrimaryAPIKey != "" {
		primary = openai.NewClient(openai.ClientConfig{
			APIKey:   cfg.PrimaryAPIKey,
			BaseURL:  cfg.PrimaryBaseURL,
			Model:    cfg.PrimaryModel,
			Timeout:  cfg.CallTimeout,
			Registry: registry,
			Logger:   log,
		})
	} else {
		log.Warn().Msg("primary AI provider not configured")
	}

	if cfg.SecondaryAPIKey != "" {
		secondary = gemini.NewClient(gemini.ClientConfig{
			APIKey:   cfg.SecondaryAPIKey,
			BaseURL:  cfg.SecondaryBaseURL,
			Model:    cfg.SecondaryModel,
			Timeout:  cfg.CallTimeout,
			Registry: registry,
			Logger:   log,
		})
	} else {
		log.Warn().Msg("secondary AI provider not configured")
	}

	return primary, secondary
}

// newEstimateCache picks the cache backend. store is only used for sqlite.
func newEstimateCache[T any](cfg config.CacheConfig, store *cache.SQLiteStore, namespace string) cache.Cache[T] {
	switch cfg.Kind {
	case "memory":
		return cache.NewMemory[T](cfg.Size, cfg.TTL)
	case "sqlite":
		if store != nil {
			return cache.NewSQLite[T](store, namespace, cfg.TTL)
		}
	}
	return cache.Nop[T]{}
}
