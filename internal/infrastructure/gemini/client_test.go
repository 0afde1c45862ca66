package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leafguard/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient("gemini-key", baseURL, Options{
		Temperature:       0.2,
		Timeout:           time.Second,
		RequestsPerSecond: 100,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		client, err := NewClient(" ", "", Options{}, nil)
		assert.Nil(t, client)
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		client, err := NewClient("k", "", Options{}, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, client.baseURL)
		assert.Equal(t, DefaultModel, client.opts.Model)
		assert.Equal(t, 2000, client.opts.MaxOutputTokens)
		assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	})
}

func TestGenerateText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", r.URL.Path)
		assert.Equal(t, "gemini-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Contents, 1) {
			assert.Equal(t, "describe rust", req.Contents[0].Parts[0].Text)
			assert.InDelta(t, 0.2, req.GenerationConfig.Temperature, 1e-9)
			assert.Equal(t, 2000, req.GenerationConfig.MaxOutputTokens)
		}

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"part one, "},{"text":"part two"}]}}]}`))
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL).GenerateText(context.Background(), "describe rust")

	require.NoError(t, err)
	assert.Equal(t, "part one, part two", text)
}

func TestGenerateText_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error status", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, "status 500"},
		{"error payload", http.StatusOK, `{"error":{"code":400,"message":"bad prompt"}}`, "bad prompt"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "empty response"},
		{"blank text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, "empty response"},
		{"invalid json", http.StatusOK, `not json`, "failed to decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			text, err := newTestClient(t, server.URL).GenerateText(context.Background(), "prompt")

			assert.Empty(t, text)
			assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGenerateText_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer server.Close()

	client, err := NewClient("k", server.URL, Options{Timeout: 50 * time.Millisecond, RequestsPerSecond: 100}, nil)
	require.NoError(t, err)

	_, err = client.GenerateText(context.Background(), "prompt")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
