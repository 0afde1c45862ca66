package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leafguard/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngUpload(size int) *domain.ImageUpload {
	return &domain.ImageUpload{
		Filename:    "leaf.png",
		ContentType: "image/png",
		Size:        int64(size),
		Data:        make([]byte, size),
	}
}

func tomatoIdentification() *domain.Identification {
	return &domain.Identification{Suggestions: []domain.PlantSuggestion{{
		PlantName:      "Solanum lycopersicum",
		Probability:    0.8,
		HasProbability: true,
		CommonNames:    []string{"Tomato"},
		Diseases: []domain.DiseaseCandidate{
			{Name: "Early blight", Description: "Provider description.", Treatment: []string{"Remove lower leaves"}},
			{Name: "Leaf mold"},
		},
	}}}
}

func newTestAnalysisService(identifier domain.PlantIdentifier, analyzer domain.DiseaseAnalyzer) *AnalysisService {
	svc := NewAnalysisService(identifier, analyzer, AnalysisServiceConfig{}, nil)
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "analysis-1" }
	return svc
}

func TestNewAnalysisService_Defaults(t *testing.T) {
	svc := NewAnalysisService(&MockPlantIdentifier{}, nil, AnalysisServiceConfig{}, nil)
	assert.Equal(t, DefaultMaxUploadBytes, svc.MaxUploadBytes())
	assert.Equal(t, 30*time.Second, svc.identifyTimeout)
	assert.Equal(t, 4, svc.enrichmentWorkers)
}

func TestValidateUpload(t *testing.T) {
	const maxBytes = DefaultMaxUploadBytes

	tests := []struct {
		name     string
		upload   *domain.ImageUpload
		wantCode string
	}{
		{"nil upload", nil, domain.CodeNoImage},
		{"empty upload", &domain.ImageUpload{ContentType: "image/png"}, domain.CodeNoImage},
		{"too large image", pngUpload(int(maxBytes) + 1), domain.CodeFileTooLarge},
		{"too large by declared size", &domain.ImageUpload{ContentType: "image/png", Size: maxBytes + 1, Data: []byte{1}}, domain.CodeFileTooLarge},
		{"too large with wrong type", &domain.ImageUpload{ContentType: "application/pdf", Size: maxBytes + 1}, domain.CodeFileTooLarge},
		{"wrong type", &domain.ImageUpload{ContentType: "text/plain", Size: 3, Data: []byte("abc")}, domain.CodeInvalidFileType},
		{"missing type", &domain.ImageUpload{Size: 3, Data: []byte("abc")}, domain.CodeInvalidFileType},
		{"exactly at limit", pngUpload(int(maxBytes)), ""},
		{"uppercase type", &domain.ImageUpload{ContentType: "IMAGE/JPEG", Size: 1, Data: []byte{1}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.upload, maxBytes)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			var domainErr *domain.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.wantCode, domainErr.Code)
		})
	}
}

func TestValidateUpload_TooLargeDetails(t *testing.T) {
	err := ValidateUpload(pngUpload(11<<20), DefaultMaxUploadBytes)

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "File is too large. Maximum size is 10MB.", domainErr.Message)
	assert.Equal(t, DefaultMaxUploadBytes, domainErr.Details["maxSize"])
	assert.Equal(t, int64(11<<20), domainErr.Details["receivedSize"])
}

func TestAnalyze_Success(t *testing.T) {
	identifier := &MockPlantIdentifier{result: tomatoIdentification()}
	analyzer := &MockDiseaseAnalyzer{details: map[string]domain.DiseaseDetails{
		"Early blight": {
			DiseaseName: "Early blight",
			Description: "Generated description.",
			Causes:      []string{"Alternaria solani"},
			Severity:    domain.SeverityHigh,
		},
	}}
	svc := newTestAnalysisService(identifier, analyzer)

	result, err := svc.Analyze(context.Background(), pngUpload(128))
	require.NoError(t, err)

	assert.Equal(t, 1, identifier.calls)
	assert.Equal(t, "analysis-1", result.ID)
	assert.Equal(t, 60, result.Health)
	assert.Equal(t, []string{"Early blight", "Leaf mold"}, result.Diseases)
	assert.ElementsMatch(t, []string{"Early blight", "Leaf mold"}, analyzer.names)

	first := result.Predictions[0].Details
	require.NotNil(t, first)
	assert.Equal(t, "Generated description.", first.Description)
	assert.Equal(t, []string{"Alternaria solani"}, first.Causes)
	assert.Equal(t, []string{"Remove lower leaves"}, first.Treatment, "provider treatment fills empty enrichment field")
	assert.Equal(t, []string{"Tomato"}, first.AffectedPlants)

	second := result.Predictions[1].Details
	require.NotNil(t, second)
	assert.Equal(t, StubDescription, second.Description)
	assert.Equal(t, domain.SeverityHigh, second.Severity)
}

func TestAnalyze_StubKeepsProviderDescription(t *testing.T) {
	identifier := &MockPlantIdentifier{result: tomatoIdentification()}
	svc := newTestAnalysisService(identifier, &MockDiseaseAnalyzer{})

	result, err := svc.Analyze(context.Background(), pngUpload(16))
	require.NoError(t, err)

	assert.Equal(t, "Provider description.", result.Predictions[0].Details.Description)
}

func TestAnalyze_HealthyPlantSkipsEnrichment(t *testing.T) {
	identifier := &MockPlantIdentifier{result: &domain.Identification{Suggestions: []domain.PlantSuggestion{{
		PlantName: "Ficus", Probability: 0.9, HasProbability: true,
	}}}}
	analyzer := &MockDiseaseAnalyzer{}
	svc := newTestAnalysisService(identifier, analyzer)

	result, err := svc.Analyze(context.Background(), pngUpload(16))
	require.NoError(t, err)

	assert.Equal(t, HealthyScore, result.Health)
	assert.Empty(t, analyzer.names)
	assert.Equal(t, "Ficus (no disease detected)", result.Predictions[0].Label)
}

func TestAnalyze_WithoutAnalyzer(t *testing.T) {
	svc := newTestAnalysisService(&MockPlantIdentifier{result: tomatoIdentification()}, nil)

	result, err := svc.Analyze(context.Background(), pngUpload(16))
	require.NoError(t, err)

	assert.Equal(t, "Provider description.", result.Predictions[0].Details.Description)
}

func TestAnalyze_InvalidUploadNeverCallsProvider(t *testing.T) {
	identifier := &MockPlantIdentifier{result: tomatoIdentification()}
	svc := newTestAnalysisService(identifier, nil)

	_, err := svc.Analyze(context.Background(), pngUpload(int(DefaultMaxUploadBytes)+1))

	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 0, identifier.calls)
}

func TestAnalyze_ProviderErrors(t *testing.T) {
	t.Run("typed upstream error passes through", func(t *testing.T) {
		upstream := domain.UpstreamUnavailable("plant.id", errors.New("503"))
		svc := newTestAnalysisService(&MockPlantIdentifier{err: upstream}, nil)

		result, err := svc.Analyze(context.Background(), pngUpload(16))

		assert.Nil(t, result)
		assert.Same(t, upstream, err)
	})

	t.Run("untyped error becomes upstream unavailable", func(t *testing.T) {
		svc := newTestAnalysisService(&MockPlantIdentifier{err: context.DeadlineExceeded}, nil)

		_, err := svc.Analyze(context.Background(), pngUpload(16))

		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("no suggestions", func(t *testing.T) {
		svc := newTestAnalysisService(&MockPlantIdentifier{result: &domain.Identification{}}, nil)

		result, err := svc.Analyze(context.Background(), pngUpload(16))

		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrNoIdentification)
	})
}

func TestAnalysisOutcome(t *testing.T) {
	assert.Equal(t, "success", analysisOutcome(nil))
	assert.Equal(t, "invalid_request", analysisOutcome(domain.InvalidRequest(domain.CodeNoImage, "x", nil)))
	assert.Equal(t, "no_identification", analysisOutcome(domain.NoIdentification()))
	assert.Equal(t, "upstream_error", analysisOutcome(domain.UpstreamUnavailable("gemini", nil)))
	assert.Equal(t, "internal_error", analysisOutcome(errors.New("boom")))
}

func TestMergeDetails(t *testing.T) {
	seed := &domain.DiseaseDetails{Description: "seed", Treatment: []string{"t"}, AffectedPlants: []string{"p"}}

	merged := mergeDetails(domain.DiseaseDetails{Description: "generated", Treatment: []string{"g"}}, seed)
	assert.Equal(t, "generated", merged.Description)
	assert.Equal(t, []string{"g"}, merged.Treatment)
	assert.Equal(t, []string{"p"}, merged.AffectedPlants)

	merged = mergeDetails(domain.DiseaseDetails{DiseaseName: "x"}, nil)
	assert.Equal(t, "x", merged.DiseaseName)
}
