// Package api provides the HTTP API for SafeRoute.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/handler"
	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/auth"
	"github.com/saferoute/saferoute/internal/guardian"
	"github.com/saferoute/saferoute/internal/journey"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/sos"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// RequireTLS rejects plain-HTTP requests that did not come through a
	// TLS-terminating proxy.
	RequireTLS bool

	// AllowedOrigins lists the browser origins allowed by CORS. Empty
	// disables CORS headers.
	AllowedOrigins []string

	AuthService *auth.Service
	Planner     handler.JourneyPlanner
	Safety      journey.SafetyScorer
	ETA         journey.TimeEstimator
	Zones       handler.ZoneLookup
	Guardians   *guardian.Service
	SOS         *sos.Service

	// Clock resolves the traveller's local time. Its Location applies when a
	// request carries neither a time zone nor a UTC offset.
	Clock handler.Clock

	// Registry reports provider health on /v1/ops/status.
	Registry *resilience.Registry
	// Checks are probed by /v1/ops/ready and /v1/ops/status.
	Checks []handler.DependencyCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "saferoute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Location", "Retry-After", "X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Checks...)

	authMiddleware := middleware.Auth(cfg.AuthService)
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)
	planningRateLimit := middleware.RateLimitByIP(middleware.PlanningRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			if cfg.AuthService != nil {
				r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
			}
		})

		if cfg.AuthService != nil {
			authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
			r.Route("/auth", func(r chi.Router) {
				r.Use(authRateLimit)
				if cfg.AuthService.DevAuthEnabled() {
					r.Post("/dev", authHandler.DevLogin)
				}
				r.Post("/refresh", authHandler.RefreshToken)
				r.Post("/logout", authHandler.Logout)
				r.With(authMiddleware).Post("/logout-all", authHandler.LogoutAll)
			})
		}

		// Estimation endpoints call the AI providers.
		r.Group(func(r chi.Router) {
			r.Use(planningRateLimit)
			if cfg.Planner != nil {
				journeyHandler := handler.NewJourneyHandler(cfg.Planner, cfg.Clock, cfg.Logger)
				r.Post("/journeys:plan", journeyHandler.PlanJourney)
			}
			if cfg.Safety != nil && cfg.ETA != nil {
				estimateHandler := handler.NewEstimateHandler(cfg.Safety, cfg.ETA, cfg.Clock)
				r.Post("/safety:score", estimateHandler.ScoreSafety)
				r.Post("/eta:estimate", estimateHandler.EstimateETA)
			}
		})

		if cfg.Zones != nil {
			zoneHandler := handler.NewZoneHandler(cfg.Zones, cfg.Clock)
			r.With(standardRateLimit).Get("/danger-zones", zoneHandler.ListZones)
		}

		if cfg.AuthService != nil {
			r.Route("/me", func(r chi.Router) {
				r.Use(authMiddleware)

				if cfg.Guardians != nil {
					guardianHandler := handler.NewGuardianHandler(cfg.Guardians, cfg.Logger)
					r.Route("/guardians", func(r chi.Router) {
						r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit))
						r.Get("/", guardianHandler.ListGuardians)
						r.Post("/", guardianHandler.CreateGuardian)
						r.Delete("/{guardianId}", guardianHandler.DeleteGuardian)
					})
				}

				if cfg.SOS != nil {
					sosHandler := handler.NewSOSHandler(cfg.SOS, cfg.Logger)
					r.With(middleware.RateLimitByUser(middleware.SOSRateLimit)).Post("/sos", sosHandler.RaiseSOS)
				}
			})
		}
	})

	return r
}
