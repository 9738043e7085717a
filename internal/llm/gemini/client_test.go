package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/llm"
)

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "estimate this", body.Contents[0].Parts[0].Text)
		require.NotNil(t, body.GenerationConfig)
		assert.Equal(t, "application/json", body.GenerationConfig.ResponseMimeType)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"` + "```json\\n" + `{\"score\": 4,"},{"text":" \"tip\": \"Unlit park.\"}` + "\\n```" + `"}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:     "g-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	out, err := client.Complete(context.Background(), llm.Request{Prompt: "estimate this", JSONMode: true})
	require.NoError(t, err)

	var parsed struct {
		Score llm.Number `json:"score"`
		Tip   string     `json:"tip"`
	}
	require.NoError(t, llm.DecodeObject(out, &parsed))
	assert.Equal(t, 4.0, parsed.Score.Value)
	assert.Equal(t, "Unlit park.", parsed.Tip)
}

func TestClient_Complete_MissingKeyMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "x"})
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_Complete_QuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "x"})

	var apiErr *llm.Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsQuota())
	assert.Equal(t, "Resource has been exhausted", apiErr.Message)
}

func TestClient_Complete_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "x"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestClient_Complete_NetworkErrorHidesKey(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "secret-key", BaseURL: "http://127.0.0.1:1"})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
}
