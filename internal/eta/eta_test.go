package eta

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/cache"
	"github.com/saferoute/saferoute/internal/fallback"
	"github.com/saferoute/saferoute/internal/llm"
	"github.com/saferoute/saferoute/internal/routing"
)

func atHour(hour int) time.Time {
	return time.Date(2026, 3, 6, hour, 0, 0, 0, time.UTC)
}

func TestAdjustmentFactor(t *testing.T) {
	tests := []struct {
		name     string
		mode     routing.Mode
		hour     int
		distance float64
		want     float64
	}{
		{"driving rush morning", routing.ModeDriving, 8, 5000, 1.3},
		{"driving rush evening", routing.ModeDriving, 19, 5000, 1.3},
		{"driving night", routing.ModeDriving, 23, 5000, 0.85},
		{"driving early night", routing.ModeDriving, 5, 5000, 0.85},
		{"driving midday", routing.ModeDriving, 13, 5000, 1.0},
		{"driving 21h is not night", routing.ModeDriving, 21, 5000, 1.0},
		{"cycling night", routing.ModeCycling, 22, 2000, 1.15},
		{"cycling rush", routing.ModeCycling, 17, 2000, 1.1},
		{"cycling midday", routing.ModeCycling, 14, 2000, 1.0},
		{"walking night short", routing.ModeWalking, 2, 1000, 1.2},
		{"walking night long is capped", routing.ModeWalking, 2, 4000, 1.3},
		{"walking day long", routing.ModeWalking, 10, 4000, 1.1},
		{"walking exactly 3km", routing.ModeWalking, 10, 3000, 1.0},
		{"walking day short", routing.ModeWalking, 10, 1000, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AdjustmentFactor(tt.mode, tt.hour, tt.distance), 1e-9)
		})
	}
}

func TestTimeBucket(t *testing.T) {
	assert.Equal(t, "night", TimeBucket(3))
	assert.Equal(t, "early-morning", TimeBucket(6))
	assert.Equal(t, "morning", TimeBucket(9))
	assert.Equal(t, "afternoon", TimeBucket(15))
	assert.Equal(t, "evening", TimeBucket(20))
	assert.Equal(t, "night", TimeBucket(22))
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name         string
		query        Query
		wantBase     float64
		wantAdjusted float64
		wantClock    string
	}{
		{
			name:         "cycling at night",
			query:        Query{Mode: routing.ModeCycling, RouteDurationSeconds: 600, DistanceMeters: 2500, At: atHour(22)},
			wantBase:     690,
			wantAdjusted: 810,
			wantClock:    "22:13",
		},
		{
			name:         "driving in rush hour",
			query:        Query{Mode: routing.ModeDriving, RouteDurationSeconds: 1000, DistanceMeters: 10000, At: atHour(8)},
			wantBase:     1300,
			wantAdjusted: 1600,
			wantClock:    "08:26",
		},
		{
			name:         "driving at night",
			query:        Query{Mode: routing.ModeDriving, RouteDurationSeconds: 1000, DistanceMeters: 10000, At: atHour(23)},
			wantBase:     850,
			wantAdjusted: 1150,
			wantClock:    "23:19",
		},
		{
			name:         "walking long distance at night",
			query:        Query{Mode: routing.ModeWalking, RouteDurationSeconds: 3600, DistanceMeters: 5000, At: atHour(1)},
			wantBase:     4680,
			wantAdjusted: 4680,
			wantClock:    "02:18",
		},
		{
			name:         "arrival wraps past midnight",
			query:        Query{Mode: routing.ModeCycling, RouteDurationSeconds: 3600, DistanceMeters: 15000, At: atHour(23)},
			wantBase:     4140,
			wantAdjusted: 4260,
			wantClock:    "00:11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := Heuristic(tt.query)

			assert.Equal(t, tt.wantBase, est.BaseDurationSeconds)
			assert.Equal(t, tt.wantAdjusted, est.AdjustedDurationSeconds)
			assert.Equal(t, tt.wantClock, est.ArrivalClock)
			assert.Equal(t, tt.query.RouteDurationSeconds, est.RouteDurationSeconds)
			assert.Equal(t, fallback.Heuristic, est.Provenance)
			assert.Equal(t, 65, est.Confidence())
			assert.NotEmpty(t, est.Notes)
		})
	}
}

func TestHeuristic_WalkingHasNoAccessTime(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		for _, distance := range []float64{0, 800, 3000, 3001, 12000} {
			est := Heuristic(Query{
				Mode:                 routing.ModeWalking,
				RouteDurationSeconds: distance / 5000 * 3600,
				DistanceMeters:       distance,
				At:                   atHour(hour),
			})
			require.Equal(t, est.BaseDurationSeconds, est.AdjustedDurationSeconds, "hour %d distance %.0f", hour, distance)
		}
	}
}

func TestHeuristic_AccessTimeNeverNegative(t *testing.T) {
	for _, mode := range routing.AllModes {
		for hour := 0; hour < 24; hour++ {
			est := Heuristic(Query{Mode: mode, RouteDurationSeconds: 900, DistanceMeters: 4000, At: atHour(hour)})
			assert.GreaterOrEqual(t, est.AdjustedDurationSeconds, est.BaseDurationSeconds)
		}
	}
}

func TestHeuristic_UsesDepartureOffset(t *testing.T) {
	london := time.FixedZone("BST", 3600)
	depart := time.Date(2026, 10, 16, 17, 30, 0, 0, london)

	local := Heuristic(Query{Mode: routing.ModeDriving, RouteDurationSeconds: 1000, DistanceMeters: 9000, At: depart})
	utc := Heuristic(Query{Mode: routing.ModeDriving, RouteDurationSeconds: 1000, DistanceMeters: 9000, At: depart.UTC()})

	assert.Equal(t, 1300.0, local.BaseDurationSeconds, "17:30 local is rush hour")
	assert.Equal(t, "17:56", local.ArrivalClock)
	assert.Equal(t, 1000.0, utc.BaseDurationSeconds, "16:30 UTC is not")
	assert.Equal(t, "16:51", utc.ArrivalClock)
}

func TestHeuristic_ZeroTimeIsUTC(t *testing.T) {
	est := Heuristic(Query{Mode: routing.ModeWalking, RouteDurationSeconds: 600, DistanceMeters: 800})

	assert.Equal(t, time.UTC, est.DepartAt.Location())
	assert.WithinDuration(t, time.Now(), est.DepartAt, time.Minute)
}

func TestEstimate_WithBase(t *testing.T) {
	est := Heuristic(Query{Mode: routing.ModeCycling, RouteDurationSeconds: 2000, DistanceMeters: 2100, At: atHour(12)})

	fixed := est.WithBase(504, "cycling slower than walking")

	assert.Equal(t, 504.0, fixed.BaseDurationSeconds)
	assert.Equal(t, 624.0, fixed.AdjustedDurationSeconds)
	assert.Equal(t, "12:10", fixed.ArrivalClock)
	assert.True(t, fixed.Corrected)
	assert.Equal(t, "cycling slower than walking", fixed.CorrectionReason)
	assert.False(t, est.Corrected, "original is not modified")
}

func TestParseReply(t *testing.T) {
	est, err := ParseReply("```json\n{\"estimatedDuration\": 12, \"adjustedDuration\": \"14.5\", \"notes\": \"Bike racks outside.\"}\n```", routing.ModeCycling)
	require.NoError(t, err)
	assert.Equal(t, 720.0, est.BaseDurationSeconds)
	assert.Equal(t, 870.0, est.AdjustedDurationSeconds)
	assert.Equal(t, "Bike racks outside.", est.Notes)

	walk, err := ParseReply(`{"estimatedDuration": 30, "adjustedDuration": 35, "notes": ""}`, routing.ModeWalking)
	require.NoError(t, err)
	assert.Equal(t, walk.BaseDurationSeconds, walk.AdjustedDurationSeconds)
	assert.NotEmpty(t, walk.Notes)

	_, err = ParseReply(`{"adjustedDuration": 35}`, routing.ModeDriving)
	assert.ErrorIs(t, err, ErrMissingDuration)

	_, err = ParseReply(`{"estimatedDuration": -3, "adjustedDuration": 35}`, routing.ModeDriving)
	assert.ErrorIs(t, err, ErrBadDuration)

	_, err = ParseReply(`{"estimatedDuration": 30, "adjustedDuration": 20}`, routing.ModeDriving)
	assert.ErrorIs(t, err, ErrInconsistentDuration)
}

func TestBuildPrompt(t *testing.T) {
	q := Query{
		Origin:               "Camden Town",
		Destination:          "Angel",
		Mode:                 routing.ModeDriving,
		RouteDurationSeconds: 900,
		DistanceMeters:       3400,
		At:                   atHour(7),
	}

	p := BuildPrompt(q, true)
	for _, want := range []string{
		"Camden Town", "Angel", "driving", "3.4 km", "15 minutes", "early-morning",
		"07:00-09:00", "17:00-19:00", "parking", "estimatedDuration", "adjustedDuration", "notes",
		"Return JSON only",
	} {
		assert.True(t, strings.Contains(p, want), "prompt missing %q", want)
	}
	assert.NotContains(t, BuildPrompt(q, false), "Return JSON only")
}

type fakeProvider struct {
	name  string
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(context.Context, llm.Request) (string, error) {
	f.calls.Add(1)
	return f.reply, f.err
}

var cyclingQuery = Query{
	Origin:               "51.507400,-0.127800",
	Destination:          "51.515500,-0.092200",
	Mode:                 routing.ModeCycling,
	RouteDurationSeconds: 600,
	DistanceMeters:       2500,
	At:                   atHour(22),
}

func TestService_PrimarySuccess(t *testing.T) {
	primary := &fakeProvider{name: "openai", reply: `{"estimatedDuration": 11, "adjustedDuration": 13, "notes": "Quiet roads."}`}
	secondary := &fakeProvider{name: "gemini", reply: `{"estimatedDuration": 20, "adjustedDuration": 22, "notes": "x"}`}

	svc := NewService(ServiceConfig{Primary: primary, Secondary: secondary, Logger: zerolog.Nop()})
	est := svc.Estimate(context.Background(), cyclingQuery)

	assert.Equal(t, fallback.PrimaryAI, est.Provenance)
	assert.Equal(t, 660.0, est.BaseDurationSeconds)
	assert.Equal(t, 780.0, est.AdjustedDurationSeconds)
	assert.Equal(t, 600.0, est.RouteDurationSeconds)
	assert.Equal(t, "22:13", est.ArrivalClock)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(0), secondary.calls.Load())
}

func TestService_SecondaryAfterPrimaryFailure(t *testing.T) {
	primary := &fakeProvider{name: "openai", reply: `{"estimatedDuration": 30, "adjustedDuration": 10}`}
	secondary := &fakeProvider{name: "gemini", reply: `{"estimatedDuration": 12, "adjustedDuration": 14, "notes": "Hilly."}`}

	svc := NewService(ServiceConfig{Primary: primary, Secondary: secondary, Logger: zerolog.Nop()})
	est := svc.Estimate(context.Background(), cyclingQuery)

	assert.Equal(t, fallback.SecondaryAI, est.Provenance)
	assert.Equal(t, 80, est.Confidence())
	assert.Equal(t, 840.0, est.AdjustedDurationSeconds)
	assert.Equal(t, int32(1), secondary.calls.Load())
}

func TestService_HeuristicWhenBothFail(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: llm.ErrMissingCredential}
	secondary := &fakeProvider{name: "gemini", err: errors.New("context deadline exceeded")}

	svc := NewService(ServiceConfig{Primary: primary, Secondary: secondary, Logger: zerolog.Nop()})
	est := svc.Estimate(context.Background(), cyclingQuery)

	assert.Equal(t, fallback.Heuristic, est.Provenance)
	assert.Equal(t, 810.0, est.AdjustedDurationSeconds)
}

func TestService_NoProviders(t *testing.T) {
	est := NewService(ServiceConfig{}).Estimate(context.Background(), cyclingQuery)

	assert.Equal(t, Heuristic(cyclingQuery), est)
}

func TestService_CacheRefreshesArrival(t *testing.T) {
	ctx := context.Background()
	primary := &fakeProvider{name: "openai", reply: `{"estimatedDuration": 11, "adjustedDuration": 13, "notes": "Quiet roads."}`}
	svc := NewService(ServiceConfig{Primary: primary, Cache: cache.NewMemory[Estimate](16, time.Hour)})

	first := svc.Estimate(ctx, cyclingQuery)

	later := cyclingQuery
	later.At = cyclingQuery.At.Add(20 * time.Minute)
	second := svc.Estimate(ctx, later)

	assert.Equal(t, int32(1), primary.calls.Load(), "same hour served from cache")
	assert.Equal(t, first.AdjustedDurationSeconds, second.AdjustedDurationSeconds)
	assert.Equal(t, "22:13", first.ArrivalClock)
	assert.Equal(t, "22:33", second.ArrivalClock)

	nextHour := cyclingQuery
	nextHour.At = cyclingQuery.At.Add(time.Hour)
	svc.Estimate(ctx, nextHour)
	assert.Equal(t, int32(2), primary.calls.Load(), "hour is part of the key")
}
