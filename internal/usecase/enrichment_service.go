package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	enrichmentKeyPrefix = "gemini:analysis:"

	// StubDescription is returned in place of a generated description when generation fails
	StubDescription = "Could not retrieve detailed analysis. Please try again later."
)

var (
	whitespaceRunRegex = regexp.MustCompile(`\s+`)
	fencedJSONRegex    = regexp.MustCompile("```(?:json)?\\n([\\s\\S]*?)\\n```")

	// ErrIncompleteAnalysis is returned when generated output lacks required fields
	ErrIncompleteAnalysis = errors.New("incomplete response from text generator")
)

// EnrichmentServiceConfig holds configuration for the enrichment service
type EnrichmentServiceConfig struct {
	CacheTTL          time.Duration
	GenerationTimeout time.Duration
}

// EnrichmentService returns structured disease explanations, generating them on
// a cache miss. Concurrent misses for the same disease share one generation.
type EnrichmentService struct {
	cache             domain.CacheRepository
	generator         domain.TextGenerator
	cacheTTL          time.Duration
	generationTimeout time.Duration
	group             singleflight.Group
	logger            *zap.Logger
}

// NewEnrichmentService creates a new enrichment service with dependencies
func NewEnrichmentService(
	cache domain.CacheRepository,
	generator domain.TextGenerator,
	config EnrichmentServiceConfig,
	logger *zap.Logger,
) *EnrichmentService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}
	generationTimeout := config.GenerationTimeout
	if generationTimeout == 0 {
		generationTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EnrichmentService{
		cache:             cache,
		generator:         generator,
		cacheTTL:          cacheTTL,
		generationTimeout: generationTimeout,
		logger:            logger.With(zap.String("component", "enrichment")),
	}
}

// GetDiseaseAnalysis returns details for a disease name. It never fails: when
// generation is unavailable a stub derived from confidence is returned.
// Flow: check cache -> single-flight generate -> cache -> return
func (s *EnrichmentService) GetDiseaseAnalysis(ctx context.Context, diseaseName string, confidence float64) domain.DiseaseDetails {
	key := EnrichmentCacheKey(diseaseName)

	if details, ok := s.getFromCache(ctx, key); ok {
		metrics.RecordEnrichmentLookup(true)
		s.logger.Debug("cache hit", zap.String("disease", diseaseName))
		details.Cached = true
		return details
	}
	metrics.RecordEnrichmentLookup(false)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// another flight may have filled the entry while this caller waited
		if details, ok := s.getFromCache(ctx, key); ok {
			details.Cached = true
			return details, nil
		}

		s.logger.Info("generating analysis", zap.String("disease", diseaseName))
		details, err := s.generate(ctx, diseaseName, confidence)
		metrics.RecordGeneration(err == nil)
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(ctx, key, details, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return details, nil
	})
	if err != nil {
		// stub severity follows this caller's confidence, not the flight leader's
		s.logger.Warn("generation failed, returning stub",
			zap.String("disease", diseaseName), zap.Error(err))
		return StubAnalysis(diseaseName, confidence)
	}

	return cloneDetails(v.(domain.DiseaseDetails))
}

// EnrichmentCacheKey normalizes a disease name into its cache key:
// lowercased, whitespace runs collapsed to a single hyphen.
func EnrichmentCacheKey(diseaseName string) string {
	normalized := whitespaceRunRegex.ReplaceAllString(strings.ToLower(diseaseName), "-")
	return enrichmentKeyPrefix + normalized
}

// StubAnalysis is the degraded result used when generation fails
func StubAnalysis(diseaseName string, confidence float64) domain.DiseaseDetails {
	return domain.DiseaseDetails{
		DiseaseName:    diseaseName,
		Description:    StubDescription,
		Causes:         []string{},
		Symptoms:       []string{},
		Prevention:     []string{},
		Treatment:      []string{},
		Severity:       domain.SeverityFromConfidence(confidence),
		IsContagious:   false,
		AffectedPlants: []string{},
	}
}

func (s *EnrichmentService) getFromCache(ctx context.Context, key string) (domain.DiseaseDetails, bool) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return domain.DiseaseDetails{}, false
	}

	details, ok := value.(domain.DiseaseDetails)
	if !ok {
		return domain.DiseaseDetails{}, false
	}
	return cloneDetails(details), true
}

func (s *EnrichmentService) generate(ctx context.Context, diseaseName string, confidence float64) (domain.DiseaseDetails, error) {
	if s.generator == nil {
		return domain.DiseaseDetails{}, errors.New("no text generator configured")
	}

	// the flight outlives a single caller's cancellation
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.generationTimeout)
	defer cancel()

	text, err := s.generator.GenerateText(genCtx, BuildAnalysisPrompt(diseaseName, confidence))
	if err != nil {
		return domain.DiseaseDetails{}, err
	}

	return ParseGeneratedAnalysis(text)
}

// generatedAnalysis mirrors the JSON document the model is asked to produce
type generatedAnalysis struct {
	DiseaseName    string   `json:"disease_name"`
	ScientificName string   `json:"scientific_name"`
	Description    string   `json:"description"`
	Causes         []string `json:"causes"`
	Symptoms       []string `json:"symptoms"`
	Prevention     []string `json:"prevention"`
	Treatment      []string `json:"treatment"`
	Severity       string   `json:"severity"`
	IsContagious   bool     `json:"is_contagious"`
	AffectedPlants []string `json:"affected_plants"`
}

// ParseGeneratedAnalysis extracts the first fenced JSON block from model output
// (or uses the whole text when unfenced) and validates the required fields.
func ParseGeneratedAnalysis(text string) (domain.DiseaseDetails, error) {
	payload := text
	if match := fencedJSONRegex.FindStringSubmatch(text); match != nil {
		payload = match[1]
	}

	var parsed generatedAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &parsed); err != nil {
		return domain.DiseaseDetails{}, fmt.Errorf("failed to parse generated analysis: %w", err)
	}

	if strings.TrimSpace(parsed.DiseaseName) == "" || strings.TrimSpace(parsed.Description) == "" {
		return domain.DiseaseDetails{}, ErrIncompleteAnalysis
	}

	severity, _ := domain.ParseSeverity(parsed.Severity)

	return domain.DiseaseDetails{
		DiseaseName:    strings.TrimSpace(parsed.DiseaseName),
		ScientificName: strings.TrimSpace(parsed.ScientificName),
		Description:    strings.TrimSpace(parsed.Description),
		Causes:         nonNil(parsed.Causes),
		Symptoms:       nonNil(parsed.Symptoms),
		Prevention:     nonNil(parsed.Prevention),
		Treatment:      nonNil(parsed.Treatment),
		Severity:       severity,
		IsContagious:   parsed.IsContagious,
		AffectedPlants: nonNil(parsed.AffectedPlants),
	}, nil
}

// BuildAnalysisPrompt renders the pathologist prompt for a disease
func BuildAnalysisPrompt(diseaseName string, confidence float64) string {
	return fmt.Sprintf(analysisPromptTemplate, diseaseName, confidence*100)
}

const analysisPromptTemplate = `You are a plant pathologist. Analyze the plant disease: %q (Confidence: %.1f%%).

Provide a detailed analysis in the following JSON format. Be specific and include practical information for farmers and gardeners.

{
  "disease_name": "Common name of the disease",
  "scientific_name": "Scientific name (genus and species if known)",
  "description": "A 2-3 sentence overview of the disease, its impact, and common characteristics.",
  "causes": [
    "Primary cause 1",
    "Contributing factor 2",
    "Environmental condition 3"
  ],
  "symptoms": [
    "Early symptom 1 (e.g., small yellow spots on leaves)",
    "Progressive symptom 2 (e.g., spots enlarge and turn brown)",
    "Advanced symptom 3 (e.g., leaf wilting and defoliation)"
  ],
  "prevention": [
    "Cultural practice 1 (e.g., crop rotation)",
    "Environmental control 2 (e.g., proper spacing)",
    "Preventive treatment 3 (e.g., resistant varieties)"
  ],
  "treatment": [
    "Immediate action 1 (e.g., remove infected leaves)",
    "Organic treatment 2 (e.g., neem oil application)",
    "Chemical treatment 3 (if necessary, with safety precautions)"
  ],
  "severity": "low/medium/high",
  "is_contagious": true/false,
  "affected_plants": [
    "Common plant 1",
    "Common plant 2",
    "Common plant 3"
  ]
}

Additional guidelines:
- Keep descriptions concise but informative
- List 3-5 items for each array
- Use bullet points for better readability
- Include both organic and conventional treatment options
- Consider environmental impact in recommendations`

func cloneDetails(d domain.DiseaseDetails) domain.DiseaseDetails {
	d.Causes = nonNil(d.Causes)
	d.Symptoms = nonNil(d.Symptoms)
	d.Prevention = nonNil(d.Prevention)
	d.Treatment = nonNil(d.Treatment)
	d.AffectedPlants = nonNil(d.AffectedPlants)
	return d
}
