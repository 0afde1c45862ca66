package app

import (
	"context"
	"testing"
	"time"

	"github.com/leafguard/backend/config"
	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Environment: "test", MaxUploadBytes: 5 << 20},
		PlantID:    config.PlantIDConfig{APIKey: "plant-key-123456", BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Gemini:     config.GeminiConfig{APIKey: "gemini-key-123456", BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Enrichment: config.EnrichmentConfig{Enabled: true, TTL: time.Hour},
	}
}

func TestNewServices(t *testing.T) {
	t.Run("enrichment enabled", func(t *testing.T) {
		services, err := NewServices(baseConfig(), zap.NewNop())
		require.NoError(t, err)

		assert.NotNil(t, services.Analysis)
		assert.NotNil(t, services.Enrichment)
		assert.Equal(t, int64(5<<20), services.Analysis.MaxUploadBytes())
	})

	t.Run("enrichment enabled without key", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Gemini.APIKey = ""

		_, err := NewServices(cfg, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("enrichment disabled answers with stubs", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Enrichment.Enabled = false
		cfg.Gemini.APIKey = ""

		services, err := NewServices(cfg, zap.NewNop())
		require.NoError(t, err)

		details := services.Enrichment.GetDiseaseAnalysis(context.Background(), "Leaf rust", 0.9)
		assert.Equal(t, usecase.StubDescription, details.Description)
		assert.Equal(t, domain.SeverityHigh, details.Severity)
		assert.Equal(t, 0, services.Cache.Size())
	})
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		logger, err := NewLogger(level, false)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}

	logger, err := NewLogger("info", true)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger("verbose", false)
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "NOT CONFIGURED", keyPrefix(""))
	assert.Equal(t, "***", keyPrefix("short"))
	assert.Equal(t, "abcdefgh...", keyPrefix("abcdefghijklmnop"))
}
