// Package app wires configuration into the analysis pipeline shared by the
// HTTP server and the CLI.
package app

import (
	"fmt"
	"strings"

	"github.com/leafguard/backend/config"
	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/infrastructure/cache"
	"github.com/leafguard/backend/internal/infrastructure/gemini"
	"github.com/leafguard/backend/internal/infrastructure/plantid"
	"github.com/leafguard/backend/internal/usecase"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Services holds the use cases built from one configuration
type Services struct {
	Analysis   *usecase.AnalysisService
	Enrichment *usecase.EnrichmentService
	Cache      *cache.MemoryCache
}

// NewServices builds provider clients, the enrichment cache and the use cases.
// With enrichment disabled the disease service still answers, with stubs only,
// and image analysis keeps provider-derived details.
func NewServices(cfg *config.Config, logger *zap.Logger, cacheOpts ...cache.Option) (*Services, error) {
	plantClient := plantid.NewClient(cfg.PlantID.APIKey, cfg.PlantID.BaseURL, plantid.Options{
		Timeout:           cfg.PlantID.Timeout,
		RequestsPerSecond: cfg.PlantID.RequestsPerSecond,
		Burst:             cfg.PlantID.Burst,
	}, logger)
	if !cfg.Server.IsProduction() {
		plantClient.SetDebug(true)
	}
	logger.Info("plant.id client configured",
		zap.String("base_url", cfg.PlantID.BaseURL),
		zap.String("key", keyPrefix(cfg.PlantID.APIKey)),
	)

	var generator domain.TextGenerator
	if cfg.Enrichment.Enabled {
		client, err := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, gemini.Options{
			Model:           cfg.Gemini.Model,
			Temperature:     cfg.Gemini.Temperature,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
			Timeout:         cfg.Gemini.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		generator = client
		logger.Info("gemini client configured",
			zap.String("model", cfg.Gemini.Model),
			zap.String("key", keyPrefix(cfg.Gemini.APIKey)),
		)
	} else {
		logger.Warn("enrichment disabled, disease details will be stubs")
	}

	memoryCache := cache.NewMemoryCache(cacheOpts...)

	enrichment := usecase.NewEnrichmentService(memoryCache, generator, usecase.EnrichmentServiceConfig{
		CacheTTL:          cfg.Enrichment.TTL,
		GenerationTimeout: cfg.Gemini.Timeout,
	}, logger)

	var analyzer domain.DiseaseAnalyzer
	if cfg.Enrichment.Enabled {
		analyzer = enrichment
	}

	analysis := usecase.NewAnalysisService(plantClient, analyzer, usecase.AnalysisServiceConfig{
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		IdentifyTimeout: cfg.PlantID.Timeout,
	}, logger)

	return &Services{
		Analysis:   analysis,
		Enrichment: enrichment,
		Cache:      memoryCache,
	}, nil
}

// NewLogger builds a zap logger: JSON in production, console otherwise
func NewLogger(level string, production bool) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zcfg := zap.NewDevelopmentConfig()
	if production {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}

// keyPrefix shows the first 8 characters of a secret for startup logs
func keyPrefix(key string) string {
	if key == "" {
		return "NOT CONFIGURED"
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}
