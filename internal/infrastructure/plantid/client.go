package plantid

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// ProviderName labels errors and metrics for this client
	ProviderName = "plant.id"

	// maxErrorBody caps how much of a failed response body is kept for diagnostics
	maxErrorBody = 4 << 10

	// maxResponseBody caps a successful response body
	maxResponseBody = 8 << 20
)

var (
	plantDetails   = []string{"common_names", "url", "wiki_description", "taxonomy", "synonyms", "edible_parts", "watering"}
	diseaseDetails = []string{"description", "treatment", "classification", "common_names"}
)

// Options tune the client's timeout and request throttle
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client handles communication with the Plant.id identification API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	debug       bool
}

// NewClient creates a new Plant.id API client
func NewClient(apiKey, baseURL string, opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		logger:      logger.With(zap.String("component", "plantid")),
	}
}

// SetDebug toggles verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(msg string, fields ...zap.Field) {
	if c.debug {
		c.logger.Debug(msg, fields...)
	}
}

// identifyRequest is the JSON body accepted by the identify endpoint
type identifyRequest struct {
	Images         []string `json:"images"`
	PlantDetails   []string `json:"plant_details"`
	DiseaseDetails []string `json:"disease_details"`
}

// Identify submits the image once and returns the defaulted identification.
// Any transport, status or decoding failure is an UpstreamUnavailable error.
func (c *Client) Identify(ctx context.Context, upload *domain.ImageUpload) (*domain.Identification, error) {
	start := time.Now()
	identification, err := c.identify(ctx, upload)
	metrics.ObserveUpstream(ProviderName, err, time.Since(start))
	return identification, err
}

func (c *Client) identify(ctx context.Context, upload *domain.ImageUpload) (*domain.Identification, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.logger.Warn("rate limiter wait aborted", zap.Error(err))
		return nil, domain.UpstreamUnavailable(ProviderName, fmt.Errorf("rate limiter: %w", err))
	}

	body, err := json.Marshal(identifyRequest{
		Images:         []string{dataURI(upload)},
		PlantDetails:   plantDetails,
		DiseaseDetails: diseaseDetails,
	})
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/identify", bytes.NewReader(body))
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "LeafGuard/1.0")

	c.debugLog("identify request", zap.String("file", upload.Filename), zap.Int64("size", upload.Size))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("identify request failed", zap.Error(err))
		return nil, domain.UpstreamUnavailable(ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := readLimitedBody(resp.Body, maxErrorBody)
		c.logger.Error("identify returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(text)))
		upstreamErr := domain.UpstreamUnavailable(ProviderName, fmt.Errorf("status %d", resp.StatusCode))
		upstreamErr.Details["status"] = resp.StatusCode
		upstreamErr.Details["details"] = string(text)
		return nil, upstreamErr
	}

	raw, err := readLimitedBody(resp.Body, maxResponseBody)
	if err != nil {
		return nil, domain.UpstreamUnavailable(ProviderName, fmt.Errorf("failed to read response: %w", err))
	}

	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Error("identify response is not JSON", zap.Error(err))
		return nil, domain.UpstreamUnavailable(ProviderName, fmt.Errorf("failed to decode response: %w", err))
	}

	identification := MapIdentification(payload)
	c.debugLog("identify response", zap.Int("suggestions", len(identification.Suggestions)))

	return identification, nil
}

// dataURI encodes the image the way the identify endpoint expects
func dataURI(upload *domain.ImageUpload) string {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(upload.Data))
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
