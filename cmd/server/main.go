package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leafguard/backend/config"
	"github.com/leafguard/backend/internal/app"
	httpDelivery "github.com/leafguard/backend/internal/delivery/http"
	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/infrastructure/cache"
	"github.com/leafguard/backend/internal/infrastructure/ratelimit"
	"github.com/leafguard/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

var version = "1.0.0" // Overwritten at build time

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		var validationErr *config.ValidationError
		if errors.As(err, &validationErr) {
			log.Fatalf("Invalid configuration: %s: %s", validationErr.Field, validationErr.Reason)
		}
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := app.NewLogger(cfg.Log.Level, cfg.Server.IsProduction())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting LeafGuard backend",
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.NewServices(cfg, logger, cache.WithSweepInterval(cfg.Enrichment.TTL))
	if err != nil {
		return err
	}
	defer services.Cache.Close()
	logger.Info("enrichment cache ready", zap.Duration("ttl", cfg.Enrichment.TTL), zap.Bool("enabled", cfg.Enrichment.Enabled))

	limiter, closeLimiter, err := newRateLimitStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("blob storage configured", zap.String("type", cfg.Storage.Type))

	handler := httpDelivery.NewHandler(services.Analysis, services.Enrichment, blobs, httpDelivery.HandlerConfig{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Production:     cfg.Server.IsProduction(),
		Version:        version,
	}, logger)

	router := httpDelivery.SetupRouter(cfg, handler, limiter, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.RequestTimeout,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newRateLimitStore returns nil when the gate is disabled
func newRateLimitStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.RateLimitStore, func(), error) {
	noop := func() {}

	switch cfg.RateLimit.Store {
	case "redis":
		store, err := ratelimit.NewRedisStore(cfg.RateLimit.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			// the gate fails open, so an unreachable redis is not fatal
			logger.Warn("redis unreachable, rate limiting will fail open", zap.Error(err))
		}
		logger.Info("rate limiting enabled", zap.String("store", "redis"),
			zap.Int("max_requests", cfg.RateLimit.MaxRequests), zap.Duration("window", cfg.RateLimit.Window))
		return store, func() { _ = store.Close() }, nil

	case "memory":
		store := ratelimit.NewMemoryStore()
		pruneCtx, cancel := context.WithCancel(ctx)
		go func() {
			ticker := time.NewTicker(cfg.RateLimit.Window)
			defer ticker.Stop()
			for {
				select {
				case <-pruneCtx.Done():
					return
				case <-ticker.C:
					if n := store.Prune(); n > 0 {
						logger.Debug("pruned rate limit windows", zap.Int("count", n))
					}
				}
			}
		}()
		logger.Info("rate limiting enabled", zap.String("store", "memory"),
			zap.Int("max_requests", cfg.RateLimit.MaxRequests), zap.Duration("window", cfg.RateLimit.Window))
		return store, cancel, nil

	default:
		logger.Warn("rate limiting disabled")
		return nil, noop, nil
	}
}

// newBlobStore returns nil when storage is disabled
func newBlobStore(ctx context.Context, cfg *config.Config) (domain.BlobStore, error) {
	switch cfg.Storage.Type {
	case "local":
		return storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.Storage.S3Bucket,
			Region:          cfg.Storage.S3Region,
			AccessKeyID:     cfg.Storage.S3AccessKeyID,
			SecretAccessKey: cfg.Storage.S3SecretAccessKey,
			Endpoint:        cfg.Storage.S3Endpoint,
			PresignTTL:      cfg.Storage.PresignTTL,
		})
	default:
		return nil, nil
	}
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
