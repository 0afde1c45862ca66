package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leafguard"

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Pipeline metrics
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Image analyses by outcome",
		},
		[]string{"outcome"},
	)

	enrichmentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_cache_lookups_total",
			Help:      "Disease enrichment cache lookups by result",
		},
		[]string{"result"},
	)

	enrichmentGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_generations_total",
			Help:      "Disease enrichment generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Provider request duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "outcome"},
	)

	rateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Request gate decisions",
		},
		[]string{"decision"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Blob uploads by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordAnalysis counts a finished image analysis
func RecordAnalysis(outcome string) {
	analysesTotal.WithLabelValues(outcome).Inc()
}

// RecordEnrichmentLookup counts an enrichment cache hit or miss
func RecordEnrichmentLookup(hit bool) {
	if hit {
		enrichmentCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	enrichmentCacheLookups.WithLabelValues("miss").Inc()
}

// RecordGeneration counts a generation attempt
func RecordGeneration(success bool) {
	if success {
		enrichmentGenerations.WithLabelValues("success").Inc()
		return
	}
	enrichmentGenerations.WithLabelValues("failure").Inc()
}

// ObserveUpstream records the duration of one provider call
func ObserveUpstream(provider string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	upstreamRequestDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// RecordRateLimit counts an admit/deny decision; failOpen marks store errors
func RecordRateLimit(allowed, failOpen bool) {
	switch {
	case failOpen:
		rateLimitDecisions.WithLabelValues("fail_open").Inc()
	case allowed:
		rateLimitDecisions.WithLabelValues("allow").Inc()
	default:
		rateLimitDecisions.WithLabelValues("deny").Inc()
	}
}

// RecordUpload counts a blob upload
func RecordUpload(outcome string) {
	uploadsTotal.WithLabelValues(outcome).Inc()
}
