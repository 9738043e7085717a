// Package main provides the entrypoint for the SafeRoute background worker.
// It dispatches SOS alerts to guardians and probes the routing corridors.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/config"
	"github.com/saferoute/saferoute/internal/database"
	"github.com/saferoute/saferoute/internal/guardian"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/routing/engine"
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
	const serviceName = "saferoute-worker"

	cfg := config.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting SafeRoute worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	registry := resilience.NewRegistry()

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

	warmup := worker.NewWarmupJob(worker.WarmupJobConfig{
		Config: worker.WarmupConfig{Concurrency: cfg.Warmup.Concurrency},
		Routes: routingService,
		Logger: log,
	})

	var contacts guardian.Repository = guardian.NewInMemoryRepository()
	if cfg.Storage.Kind == "postgres" {
		pool, err := database.Connect(ctx, database.ConfigFromEnv())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		contacts = guardian.NewPostgresRepository(pool)
	} else {
		log.Warn().Msg("in-memory guardian store: alerts will find no guardians")
	}

	jobs := &worker.Jobs{
		Alerts: sos.NewDispatcher(contacts, sos.LogNotifier{Logger: log}, log),
		Warmup: warmup,
		Logger: log,
	}

	if cfg.PubSub.ProjectID != "" && cfg.PubSub.Subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			Jobs:             jobs,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Warn().Msg("pubsub not configured, only scheduled warm-ups will run")
	}

	if cfg.Warmup.Interval > 0 {
		go runSchedule(ctx, cfg.Warmup.Interval, warmup, log)
	}

	// Health endpoint for Cloud Run
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"version":   Version,
			"providers": registry.ProviderCount(),
			"unhealthy": registry.AnyUnhealthy(),
		})
	})
	r.Get("/metrics/warmup", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(warmup.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// runSchedule probes the corridors every interval until ctx is cancelled.
func runSchedule(ctx context.Context, interval time.Duration, job worker.Warmer, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := job.Run(ctx)
			log.Info().
				Int("successful", result.Successful).
				Int("failed", result.Failed).
				Dur("duration", result.Duration).
				Msg("scheduled corridor warm-up finished")
		}
	}
}
