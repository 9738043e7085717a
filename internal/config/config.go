// Package config loads the service configuration from the environment.
//
// All settings are read once at startup into a Config value that is passed
// down to the components that need it. Nothing in this package keeps state.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig
	Routing   RoutingConfig
	AI        AIConfig
	Cache     CacheConfig
	Zones     ZonesConfig
	Auth      AuthConfig
	PubSub    PubSubConfig
	Telemetry TelemetryConfig
	CORS      CORSConfig
	Storage   StorageConfig
	Warmup    WarmupConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        string
	Environment string
	RequireTLS  bool

	// DefaultTimeZone is the IANA zone assumed for requests that carry
	// neither a time zone nor a UTC offset.
	DefaultTimeZone string
}

// IsDevelopment reports whether the service runs in the development environment.
func (c ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// RoutingConfig selects and configures the routing provider.
type RoutingConfig struct {
	// Provider is "osrm" or "openrouteservice".
	Provider string

	// Per-mode OSRM base URLs. Each mode may be served by a distinct backend.
	WalkingURL string
	CyclingURL string
	DrivingURL string

	// ORSAPIKey and ORSBaseURL configure OpenRouteService.
	ORSAPIKey  string
	ORSBaseURL string

	Timeout  time.Duration
	CacheTTL time.Duration

	// AcquireTimeout bounds one route acquisition including retries.
	AcquireTimeout time.Duration
}

// AIConfig configures the primary and secondary AI providers.
type AIConfig struct {
	// Primary is an OpenAI-compatible chat completions endpoint.
	PrimaryBaseURL string
	PrimaryAPIKey  string
	PrimaryModel   string

	// Secondary is the Gemini generateContent API.
	SecondaryBaseURL string
	SecondaryAPIKey  string
	SecondaryModel   string

	// CallTimeout bounds each AI call. A timeout counts as a tier failure.
	CallTimeout time.Duration

	// ClampScores clamps safety scores to the nominal 1-10 range.
	ClampScores bool
}

// CacheConfig selects the estimate cache.
type CacheConfig struct {
	// Kind is "none", "memory" or "sqlite".
	Kind       string
	Size       int
	TTL        time.Duration
	SQLitePath string
}

// ZonesConfig points at an optional danger-zone file overriding the embedded set.
type ZonesConfig struct {
	Path string
}

// AuthConfig configures access-token signing.
type AuthConfig struct {
	SigningKey      string
	Issuer          string
	Audience        string
	DevAuthEnabled  bool
	UsingDefaultKey bool
}

// PubSubConfig configures SOS alert publishing and the worker subscription.
type PubSubConfig struct {
	ProjectID    string
	Topic        string
	Subscription string
}

// Enabled reports whether Pub/Sub is configured.
func (c PubSubConfig) Enabled() bool {
	return c.ProjectID != "" && c.Topic != ""
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// CORSConfig configures browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// StorageConfig selects the guardian contact store.
type StorageConfig struct {
	// Kind is "memory" or "postgres".
	Kind string
}

// WarmupConfig schedules corridor route warm-up.
type WarmupConfig struct {
	// OnStart warms the API's routing cache once at startup.
	OnStart bool

	// Interval is how often the worker probes the corridors. Zero disables
	// the schedule; Pub/Sub jobs still trigger runs.
	Interval    time.Duration
	Concurrency int
}

const defaultSigningKey = "local-dev-signing-key-change-in-production"

// Load reads .env files (if present) and then the process environment.
// Values already present in the environment win over .env; .env.local
// overrides both for local development.
func Load() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	env := getEnvOrDefault("APP_ENV", "development")
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	usingDefault := signingKey == ""
	if usingDefault {
		signingKey = defaultSigningKey
	}

	return Config{
		Server: ServerConfig{
			Port:        getEnvOrDefault("APP_PORT", "8080"),
			Environment: env,
			RequireTLS:  getBool("REQUIRE_TLS", false),

			DefaultTimeZone: getEnvOrDefault("DEFAULT_TIME_ZONE", "UTC"),
		},
		Routing: RoutingConfig{
			Provider:   getEnvOrDefault("ROUTING_PROVIDER", "osrm"),
			WalkingURL: getEnvOrDefault("OSRM_WALKING_URL", "https://routing.openstreetmap.de/routed-foot"),
			CyclingURL: getEnvOrDefault("OSRM_CYCLING_URL", "https://routing.openstreetmap.de/routed-bike"),
			DrivingURL: getEnvOrDefault("OSRM_DRIVING_URL", "https://router.project-osrm.org"),
			ORSAPIKey:  os.Getenv("ORS_API_KEY"),
			ORSBaseURL: os.Getenv("ORS_BASE_URL"),
			Timeout:    getDuration("ROUTING_TIMEOUT", 10*time.Second),
			CacheTTL:   getDuration("ROUTING_CACHE_TTL", 5*time.Minute),

			AcquireTimeout: getDuration("ROUTING_ACQUIRE_TIMEOUT", 12*time.Second),
		},
		AI: AIConfig{
			PrimaryBaseURL:   getEnvOrDefault("AI_PRIMARY_BASE_URL", "https://api.openai.com/v1"),
			PrimaryAPIKey:    os.Getenv("AI_PRIMARY_API_KEY"),
			PrimaryModel:     getEnvOrDefault("AI_PRIMARY_MODEL", "gpt-4o-mini"),
			SecondaryBaseURL: getEnvOrDefault("AI_SECONDARY_BASE_URL", "https://generativelanguage.googleapis.com"),
			SecondaryAPIKey:  os.Getenv("AI_SECONDARY_API_KEY"),
			SecondaryModel:   getEnvOrDefault("AI_SECONDARY_MODEL", "gemini-1.5-flash"),
			CallTimeout:      getDuration("AI_CALL_TIMEOUT", 12*time.Second),
			ClampScores:      getBool("AI_CLAMP_SCORES", true),
		},
		Cache: CacheConfig{
			Kind:       getEnvOrDefault("ESTIMATE_CACHE", "memory"),
			Size:       getInt("ESTIMATE_CACHE_SIZE", 1000),
			TTL:        getDuration("ESTIMATE_CACHE_TTL", 15*time.Minute),
			SQLitePath: getEnvOrDefault("ESTIMATE_CACHE_SQLITE_PATH", "data/estimates.db"),
		},
		Zones: ZonesConfig{
			Path: os.Getenv("DANGER_ZONES_PATH"),
		},
		Auth: AuthConfig{
			SigningKey:      signingKey,
			Issuer:          getEnvOrDefault("JWT_ISSUER", "https://api.saferoute.app"),
			Audience:        getEnvOrDefault("JWT_AUDIENCE", "saferoute-api"),
			DevAuthEnabled:  getBool("DEV_AUTH_ENABLED", env == "development"),
			UsingDefaultKey: usingDefault,
		},
		PubSub: PubSubConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Topic:        getEnvOrDefault("PUBSUB_TOPIC", "saferoute-jobs"),
			Subscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "saferoute-worker"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getFloat("OTEL_SAMPLE_RATIO", 1),
		},
		CORS: CORSConfig{
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Storage: StorageConfig{
			Kind: getEnvOrDefault("GUARDIAN_STORE", "memory"),
		},
		Warmup: WarmupConfig{
			OnStart:     getBool("WARMUP_ON_START", false),
			Interval:    getDurationAllowZero("WARMUP_INTERVAL", 30*time.Minute),
			Concurrency: getInt("WARMUP_CONCURRENCY", 3),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

// getDurationAllowZero is getDuration but accepts "0" to switch a schedule off.
func getDurationAllowZero(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
