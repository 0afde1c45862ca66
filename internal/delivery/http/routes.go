package http

import (
	"github.com/gin-gonic/gin"
	"github.com/leafguard/backend/config"
	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the Gin router.
// limiter may be nil, which disables the request gate.
func SetupRouter(cfg *config.Config, handler *Handler, limiter domain.RateLimitStore, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin mode based on environment
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	// Global middleware
	router.Use(RecoveryMiddleware(logger, cfg.Server.IsProduction()))
	router.Use(RequestIDMiddleware())
	router.Use(metrics.Middleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Storage.Type == "local" {
		router.Static("/files", cfg.Storage.LocalDir)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(RateLimitMiddleware(limiter, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger))
	}
	{
		v1.POST("/analyze", handler.Analyze)
		v1.POST("/diseases/analysis", handler.DiseaseAnalysis)

		upload := v1.Group("/upload")
		{
			upload.POST("", handler.Upload)
			upload.GET("/url", handler.UploadURL)
			upload.DELETE("", handler.DeleteUpload)
		}
	}

	return router
}
