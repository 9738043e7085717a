// Package main provides the entrypoint for the SafeRoute API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api"
	"github.com/saferoute/saferoute/internal/api/handler"
	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/auth"
	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/config"
	"github.com/saferoute/saferoute/internal/database"
	"github.com/saferoute/saferoute/internal/eta"
	"github.com/saferoute/saferoute/internal/fallback"
	"github.com/saferoute/saferoute/internal/guardian"
	"github.com/saferoute/saferoute/internal/journey"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/routing/engine"
	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/internal/sos"
	"github.com/saferoute/saferoute/internal/telemetry"
	"github.com/saferoute/saferoute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "saferoute-api"

	cfg := config.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Msg("starting SafeRoute API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize HTTP metrics")
	}
	tierMetrics, err := fallback.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tier metrics")
	}

	location, err := time.LoadLocation(cfg.Server.DefaultTimeZone)
	if err != nil {
		log.Fatal().Err(err).Str("time_zone", cfg.Server.DefaultTimeZone).Msg("invalid default time zone")
	}

	registry := resilience.NewRegistry()

	// Routing
	routingProvider, err := engine.New(cfg.Routing, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure routing provider")
	}
	routingService := routing.NewService(routing.ServiceConfig{
		Provider:       routingProvider,
		Logger:         log,
		CacheTTL:       cfg.Routing.CacheTTL,
		AcquireTimeout: cfg.Routing.AcquireTimeout,
	})
	log.Info().Str("provider", routingService.ProviderName()).Msg("routing service initialized")

	// Estimate caches
	var store *cache.SQLiteStore
	if cfg.Cache.Kind == "sqlite" {
		store, err = cache.OpenSQLite(cfg.Cache.SQLitePath, log)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.Cache.SQLitePath).Msg("estimate cache unavailable, continuing without it")
		} else {
			defer store.Close()
		}
	}

	// AI pipelines
	primary, secondary := newAIProviders(cfg.AI, registry, log)
	safetyService := safety.NewService(safety.ServiceConfig{
		Primary:     primary,
		Secondary:   secondary,
		Cache:       newEstimateCache[safety.Estimate](cfg.Cache, store, "safety"),
		CallTimeout: cfg.AI.CallTimeout,
		ClampScores: cfg.AI.ClampScores,
		Metrics:     tierMetrics,
		Logger:      log,
	})
	etaService := eta.NewService(eta.ServiceConfig{
		Primary:     primary,
		Secondary:   secondary,
		Cache:       newEstimateCache[eta.Estimate](cfg.Cache, store, "eta"),
		CallTimeout: cfg.AI.CallTimeout,
		Metrics:     tierMetrics,
		Logger:      log,
	})

	zones, err := safety.LoadZones(cfg.Zones.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load danger zones")
	}
	log.Info().Int("zones", zones.Len()).Msg("danger zones loaded")

	if cfg.Warmup.OnStart {
		warmup := worker.NewWarmupJob(worker.WarmupJobConfig{
			Config: worker.WarmupConfig{Concurrency: cfg.Warmup.Concurrency},
			Routes: routingService,
			Logger: log,
		})
		go warmup.Run(context.Background())
	}

	planner := journey.NewPlanner(journey.Config{
		Routes: routingService,
		Safety: safetyService,
		ETA:    etaService,
		Zones:  zones,
		Logger: log,
	})

	// Stores
	var (
		guardianRepo guardian.Repository = guardian.NewInMemoryRepository()
		refreshRepo  auth.RefreshTokenRepository
		checks       []handler.DependencyCheck
	)
	if cfg.Storage.Kind == "postgres" {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgGuardians := guardian.NewPostgresRepository(pool)
		pgTokens := auth.NewPostgresRefreshTokenRepository(pool)
		if err := database.Migrate(ctx, log, pgGuardians, pgTokens); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}

		guardianRepo = pgGuardians
		refreshRepo = pgTokens
		checks = append(checks, handler.DependencyCheck{Name: "postgres", Check: database.Check(pool)})
		log.Info().Str("database", dbConfig.Database).Msg("database connected")
	} else {
		log.Warn().Msg("using in-memory guardian store; contacts are lost on restart")
	}

	// Auth
	if cfg.Auth.UsingDefaultKey {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.Auth.SigningKey,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		}),
		RefreshRepo:    refreshRepo,
		DevAuthEnabled: cfg.Auth.DevAuthEnabled,
	})
	if cfg.Auth.DevAuthEnabled {
		log.Warn().Msg("development authentication enabled")
	}

	// SOS publishing
	var publisher sos.Publisher = sos.LogPublisher{Logger: log}
	if cfg.PubSub.Enabled() {
		pubsubPublisher, err := sos.NewPubSubPublisher(ctx, sos.PubSubConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub publisher")
		}
		defer pubsubPublisher.Close()
		publisher = pubsubPublisher
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("sos alerts published to pubsub")
	} else {
		log.Warn().Msg("pubsub not configured, sos alerts are only logged")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		RequireTLS:     cfg.Server.RequireTLS,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthService:    authService,
		Planner:        planner,
		Safety:         safetyService,
		ETA:            etaService,
		Zones:          zones,
		Clock:          handler.Clock{Location: location},
		Guardians:      guardian.NewService(guardianRepo),
		SOS:            sos.NewService(publisher, log),
		Registry:       registry,
		Checks:         checks,
	})

	// Planning waits on one bounded route acquisition and up to two
	// sequential AI calls per mode, so the write timeout leaves room for all three.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Routing.AcquireTimeout + 2*cfg.AI.CallTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
