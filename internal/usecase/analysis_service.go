package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxUploadBytes is the largest accepted image (10 MiB)
const DefaultMaxUploadBytes int64 = 10 << 20

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	MaxUploadBytes    int64
	IdentifyTimeout   time.Duration
	EnrichmentWorkers int
}

// AnalysisService runs the image analysis pipeline:
// validate -> identify -> normalize -> enrich
type AnalysisService struct {
	identifier        domain.PlantIdentifier
	analyzer          domain.DiseaseAnalyzer
	maxUploadBytes    int64
	identifyTimeout   time.Duration
	enrichmentWorkers int
	now               func() time.Time
	newID             func() string
	logger            *zap.Logger
}

// NewAnalysisService creates a new analysis service. analyzer may be nil, in
// which case predictions keep the provider-derived details only.
func NewAnalysisService(
	identifier domain.PlantIdentifier,
	analyzer domain.DiseaseAnalyzer,
	config AnalysisServiceConfig,
	logger *zap.Logger,
) *AnalysisService {
	maxUploadBytes := config.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	identifyTimeout := config.IdentifyTimeout
	if identifyTimeout <= 0 {
		identifyTimeout = 30 * time.Second
	}
	workers := config.EnrichmentWorkers
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AnalysisService{
		identifier:        identifier,
		analyzer:          analyzer,
		maxUploadBytes:    maxUploadBytes,
		identifyTimeout:   identifyTimeout,
		enrichmentWorkers: workers,
		now:               time.Now,
		newID:             uuid.NewString,
		logger:            logger.With(zap.String("component", "analysis")),
	}
}

// MaxUploadBytes is the configured upload ceiling
func (s *AnalysisService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Analyze identifies the plant in an uploaded image and returns the normalized,
// enriched result. Errors are *domain.Error values of the taxonomy kinds.
func (s *AnalysisService) Analyze(ctx context.Context, upload *domain.ImageUpload) (*domain.AnalysisResult, error) {
	result, err := s.analyze(ctx, upload)
	metrics.RecordAnalysis(analysisOutcome(err))
	return result, err
}

func (s *AnalysisService) analyze(ctx context.Context, upload *domain.ImageUpload) (*domain.AnalysisResult, error) {
	if err := ValidateUpload(upload, s.maxUploadBytes); err != nil {
		return nil, err
	}

	identifyCtx, cancel := context.WithTimeout(ctx, s.identifyTimeout)
	defer cancel()

	identification, err := s.identifier.Identify(identifyCtx, upload)
	if err != nil {
		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.UpstreamUnavailable("plant.id", err)
	}

	result, err := NormalizeIdentification(identification, s.now())
	if err != nil {
		return nil, err
	}
	result.ID = s.newID()

	// the synthesized healthy prediction has nothing to enrich
	if s.analyzer != nil && len(result.Diseases) > 0 {
		s.enrich(ctx, result)
	}

	s.logger.Info("analysis complete",
		zap.String("id", result.ID),
		zap.Int("health", result.Health),
		zap.Strings("diseases", result.Diseases),
	)

	return result, nil
}

// enrich replaces each prediction's provider-seeded details with enrichment
// output, keeping provider values where enrichment left a field empty.
func (s *AnalysisService) enrich(ctx context.Context, result *domain.AnalysisResult) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichmentWorkers)

	for i := range result.Predictions {
		p := &result.Predictions[i]
		g.Go(func() error {
			details := s.analyzer.GetDiseaseAnalysis(gctx, p.Disease, p.Confidence)
			p.Details = mergeDetails(details, p.Details)
			return nil
		})
	}

	_ = g.Wait()
}

func mergeDetails(enriched domain.DiseaseDetails, seed *domain.DiseaseDetails) *domain.DiseaseDetails {
	if seed == nil {
		return &enriched
	}

	if (enriched.Description == "" || enriched.Description == StubDescription) && seed.Description != "" {
		enriched.Description = seed.Description
	}
	if len(enriched.Treatment) == 0 {
		enriched.Treatment = seed.Treatment
	}
	if len(enriched.AffectedPlants) == 0 {
		enriched.AffectedPlants = seed.AffectedPlants
	}
	return &enriched
}

// ValidateUpload checks an image before it is sent to the provider.
// Size is checked before content type, so an oversized file is always FILE_TOO_LARGE.
func ValidateUpload(upload *domain.ImageUpload, maxBytes int64) error {
	if upload == nil || (len(upload.Data) == 0 && upload.Size == 0) {
		return domain.InvalidRequest(domain.CodeNoImage, "No image file provided", nil)
	}

	size := upload.Size
	if n := int64(len(upload.Data)); n > size {
		size = n
	}
	if size > maxBytes {
		return domain.InvalidRequest(domain.CodeFileTooLarge, "File is too large. Maximum size is "+formatSize(maxBytes)+".", map[string]interface{}{
			"maxSize":      maxBytes,
			"receivedSize": size,
		})
	}

	if !strings.HasPrefix(strings.ToLower(upload.ContentType), "image/") {
		return domain.InvalidRequest(domain.CodeInvalidFileType, "Invalid file type. Please upload an image file.", map[string]interface{}{
			"receivedType": upload.ContentType,
		})
	}

	return nil
}

func formatSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func analysisOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrNoIdentification):
		return "no_identification"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream_error"
	default:
		return "internal_error"
	}
}
