package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// ProviderName labels errors and metrics for this client
	ProviderName = "gemini"

	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response from Gemini")

// Options configure generation and transport
type Options struct {
	Model             string
	Temperature       float64
	MaxOutputTokens   int
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client calls the Gemini generateContent REST endpoint
type Client struct {
	apiKey      string
	baseURL     string
	opts        Options
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a Gemini client. An empty API key is a configuration
// error reported here instead of at first use.
func NewClient(apiKey, baseURL string, opts Options, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 2000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		opts:        opts,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		logger:      logger.With(zap.String("component", "gemini"), zap.String("model", opts.Model)),
	}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateText sends a single-turn prompt and returns the first candidate's text
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, prompt)
	metrics.ObserveUpstream(ProviderName, err, time.Since(start))
	return text, err
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", domain.UpstreamUnavailable(ProviderName, fmt.Errorf("rate limiter: %w", err))
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.opts.Temperature,
			MaxOutputTokens: c.opts.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.opts.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.UpstreamUnavailable(ProviderName, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.UpstreamUnavailable(ProviderName, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("generateContent returned error status", zap.Int("status", resp.StatusCode))
		return "", domain.UpstreamUnavailable(ProviderName,
			fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, truncate(string(respBytes), 512)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", domain.UpstreamUnavailable(ProviderName, fmt.Errorf("failed to decode response: %w", err))
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", domain.UpstreamUnavailable(ProviderName, fmt.Errorf("Gemini API error: %s", parsed.Error.Message))
	}
	if len(parsed.Candidates) == 0 {
		return "", domain.UpstreamUnavailable(ProviderName, ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", domain.UpstreamUnavailable(ProviderName, ErrEmptyResponse)
	}

	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
