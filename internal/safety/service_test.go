package safety

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

type fakeProvider struct {
	name    string
	reply   string
	err     error
	calls   atomic.Int32
	prompts []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls.Add(1)
	f.prompts = append(f.prompts, req.Prompt)
	return f.reply, f.err
}

var nightQuery = Query{
	Origin:      "Charing Cross",
	Destination: "Liverpool Street",
	Mode:        routing.ModeWalking,
	At:          time.Date(2026, 3, 6, 23, 30, 0, 0, time.UTC),
}

func TestService_PrimarySuccess(t *testing.T) {
	primary := &fakeProvider{name: "openai", reply: "```json\n{\"score\": 9, \"tip\": \"Strand is busy and lit.\"}\n```"}
	secondary := &fakeProvider{name: "gemini", reply: `{"score": 2, "tip": "x"}`}

	svc := NewService(ServiceConfig{Primary: primary, Secondary: secondary, Logger: zerolog.Nop()})
	est := svc.Score(context.Background(), nightQuery)

	assert.Equal(t, 9.0, est.Score)
	assert.Equal(t, "Strand is busy and lit.", est.Explanation)
	assert.Equal(t, fallback.PrimaryAI, est.Provenance)
	assert.Equal(t, 85, est.Confidence())
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(0), secondary.calls.Load(), "secondary must not run when primary succeeds")
}

func TestService_SecondaryAfterPrimaryFailure(t *testing.T) {
	tests := []struct {
		name    string
		primary *fakeProvider
	}{
		{"network failure", &fakeProvider{name: "openai", err: errors.New("dial tcp: connection refused")}},
		{"auth failure", &fakeProvider{name: "openai", err: &llm.Error{Provider: "openai", StatusCode: 401}}},
		{"not json", &fakeProvider{name: "openai", reply: "I think this route is fairly safe."}},
		{"missing score", &fakeProvider{name: "openai", reply: `{"tip": "Stay alert."}`}},
		{"missing tip", &fakeProvider{name: "openai", reply: `{"score": 7}`}},
		{"non-numeric score", &fakeProvider{name: "openai", reply: `{"score": "fairly safe", "tip": "ok"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondary := &fakeProvider{name: "gemini", reply: `{"score": 3, "tip": "The canal path is unlit after dark."}`}
			svc := NewService(ServiceConfig{Primary: tt.primary, Secondary: secondary, Logger: zerolog.Nop()})

			est := svc.Score(context.Background(), nightQuery)

			assert.Equal(t, fallback.SecondaryAI, est.Provenance)
			assert.Equal(t, 3.0, est.Score)
			assert.Equal(t, int32(1), tt.primary.calls.Load())
			assert.Equal(t, int32(1), secondary.calls.Load())
		})
	}
}

func TestService_HeuristicWhenBothFail(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: llm.ErrMissingCredential}
	secondary := &fakeProvider{name: "gemini", err: &llm.Error{Provider: "gemini", StatusCode: 429}}

	svc := NewService(ServiceConfig{Primary: primary, Secondary: secondary, Logger: zerolog.Nop()})
	est := svc.Score(context.Background(), nightQuery)

	assert.Equal(t, fallback.Heuristic, est.Provenance)
	assert.Equal(t, 7.8, est.Score)
	assert.Contains(t, est.Explanation, "main roads")
	assert.Equal(t, 65, est.Confidence())
}

func TestService_NoProvidersConfigured(t *testing.T) {
	svc := NewService(ServiceConfig{Logger: zerolog.Nop()})

	est := svc.Score(context.Background(), nightQuery)

	assert.Equal(t, Heuristic(), est)
}

func TestService_SecondaryPromptAsksForJSONOnly(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("down")}
	secondary := &fakeProvider{name: "gemini", reply: `{"score": 6, "tip": "Residential, average footfall."}`}

	svc := NewService(ServiceConfig{Primary: primary, Secondary: secondary, Logger: zerolog.Nop()})
	svc.Score(context.Background(), nightQuery)

	require.Len(t, primary.prompts, 1)
	require.Len(t, secondary.prompts, 1)
	assert.NotContains(t, primary.prompts[0], "Return JSON only")
	assert.Contains(t, secondary.prompts[0], "Return JSON only")
}

func TestService_ClampScores(t *testing.T) {
	primary := &fakeProvider{name: "openai", reply: `{"score": 14, "tip": "Very safe."}`}

	clamped := NewService(ServiceConfig{Primary: primary, ClampScores: true}).Score(context.Background(), nightQuery)
	assert.Equal(t, 10.0, clamped.Score)
	assert.True(t, clamped.Clamped)

	raw := NewService(ServiceConfig{Primary: primary}).Score(context.Background(), nightQuery)
	assert.Equal(t, 14.0, raw.Score)
	assert.False(t, raw.Clamped)
}

func TestService_CachesOnlyAIResults(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory[Estimate](10, time.Hour)

	primary := &fakeProvider{name: "openai", reply: `{"score": 8, "tip": "Main road."}`}
	svc := NewService(ServiceConfig{Primary: primary, Cache: mem})

	first := svc.Score(ctx, nightQuery)
	second := svc.Score(ctx, nightQuery)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), primary.calls.Load(), "second call served from cache")

	failing := &fakeProvider{name: "openai", err: errors.New("down")}
	svc = NewService(ServiceConfig{Primary: failing, Cache: cache.NewMemory[Estimate](10, time.Hour)})
	svc.Score(ctx, nightQuery)
	svc.Score(ctx, nightQuery)
	assert.Equal(t, int32(2), failing.calls.Load(), "heuristic results are not cached")
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(nightQuery, false)

	for _, want := range []string{
		"Charing Cross", "Liverpool Street", "walking", "Friday 23:30", "night",
		"Never default to a middle score", "full 1-10 scale", "9-10", "1-4", "6-8",
		`{"score"`, `"tip"`,
	} {
		assert.True(t, strings.Contains(p, want), "prompt missing %q", want)
	}
}

func TestParseReply(t *testing.T) {
	est, err := ParseReply(`Here is my rating: {"score": 0.5, "tip": "Isolated industrial estate."}`, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, est.Score)
	assert.True(t, est.Clamped)

	_, err = ParseReply(`{"score": null, "tip": "x"}`, true)
	assert.ErrorIs(t, err, ErrMissingScore)

	_, err = ParseReply(`{"score": 5, "tip": "   "}`, true)
	assert.ErrorIs(t, err, ErrMissingTip)
}
