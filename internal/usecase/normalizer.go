package usecase

import (
	"math"
	"time"

	"github.com/leafguard/backend/internal/domain"
)

const (
	// HealthyScore is the health reported when no disease was detected
	HealthyScore = 90
	// MinDiseasedHealth floors the health score when diseases are present
	MinDiseasedHealth = 20

	noDiseaseSuffix = " (no disease detected)"

	metadataModel    = "plant.id"
	metadataVersion  = "v2"
	metadataProvider = "Plant.id API"
)

// NormalizeIdentification builds the AnalysisResult for one image from the ingested
// provider response. The top suggestion is authoritative: its probability is the
// shared basis for every prediction's confidence and for the health score.
func NormalizeIdentification(id *domain.Identification, now time.Time) (*domain.AnalysisResult, error) {
	if id == nil || len(id.Suggestions) == 0 {
		return nil, domain.NoIdentification()
	}

	top := id.Suggestions[0]
	probability := predictionProbability(top)

	var (
		predictions []domain.Prediction
		health      int
	)

	if len(top.Diseases) == 0 {
		label := top.PlantName + noDiseaseSuffix
		predictions = []domain.Prediction{{
			Label:           label,
			Disease:         label,
			Confidence:      probability,
			Severity:        domain.SeverityMedium,
			Recommendations: GenerateRecommendations(label),
			Details: &domain.DiseaseDetails{
				DiseaseName:    label,
				Severity:       domain.SeverityLow,
				Causes:         []string{},
				Symptoms:       []string{},
				Prevention:     []string{},
				Treatment:      []string{},
				AffectedPlants: nonNil(top.CommonNames),
			},
		}}
		health = HealthyScore
	} else {
		predictions = make([]domain.Prediction, 0, len(top.Diseases))
		for _, disease := range top.Diseases {
			predictions = append(predictions, diseasePrediction(disease, probability, top.CommonNames))
		}
		health = diseasedHealth(healthBasis(top))
	}

	timestamp := now.UTC().Format(time.RFC3339)
	result := &domain.AnalysisResult{
		Health:          health,
		Diseases:        diseaseNames(top.Diseases),
		Recommendations: predictions[0].Recommendations,
		Confidence:      resultConfidence(top),
		Predictions:     predictions,
		Timestamp:       timestamp,
		Metadata: domain.AnalysisMetadata{
			Model:             metadataModel,
			Version:           metadataVersion,
			AnalysisProvider:  metadataProvider,
			AnalysisTimestamp: timestamp,
		},
		PlantInfo: domain.PlantInfo{BestMatch: domain.PlantMatchInfo{
			CommonNames:    nonNil(top.CommonNames),
			ScientificName: top.PlantName,
		}},
	}
	if top.HasProbability {
		score := top.Probability
		result.PlantInfo.BestMatch.Score = &score
	}

	return result, nil
}

func diseasePrediction(disease domain.DiseaseCandidate, probability float64, affected []string) domain.Prediction {
	severity, _ := domain.ParseSeverity(disease.Severity)

	recommendations := disease.Treatment
	if len(recommendations) == 0 {
		recommendations = GenerateRecommendations(disease.Name)
	} else {
		recommendations = append([]string(nil), recommendations...)
	}

	return domain.Prediction{
		Label:           disease.Name,
		Disease:         disease.Name,
		Confidence:      probability,
		Severity:        severity,
		Recommendations: recommendations,
		Details: &domain.DiseaseDetails{
			DiseaseName:    disease.Name,
			Description:    disease.Description,
			Causes:         []string{},
			Symptoms:       []string{},
			Prevention:     []string{},
			Treatment:      nonNil(disease.Treatment),
			Severity:       severity,
			AffectedPlants: nonNil(affected),
		},
	}
}

// predictionProbability is the top suggestion's probability clamped to [0,1].
// Only an absent probability falls back to DefaultProbability; a reported 0 is kept.
func predictionProbability(s domain.PlantSuggestion) float64 {
	if !s.HasProbability {
		return domain.DefaultProbability
	}
	return clamp01(s.Probability)
}

// healthBasis treats a zero probability like a missing one
func healthBasis(s domain.PlantSuggestion) float64 {
	if !s.HasProbability || s.Probability == 0 {
		return domain.DefaultProbability
	}
	return clamp01(s.Probability)
}

// diseasedHealth is the inverse-scaled health score, floored at MinDiseasedHealth
func diseasedHealth(probability float64) int {
	health := 100 - int(math.Round(probability*100/2))
	if health < MinDiseasedHealth {
		return MinDiseasedHealth
	}
	if health > 100 {
		return 100
	}
	return health
}

// resultConfidence is the percentage form of the provider probability; absent is 0
func resultConfidence(s domain.PlantSuggestion) int {
	if !s.HasProbability {
		return 0
	}
	return int(math.Round(clamp01(s.Probability) * 100))
}

func diseaseNames(diseases []domain.DiseaseCandidate) []string {
	names := make([]string, 0, len(diseases))
	for _, d := range diseases {
		names = append(names, d.Name)
	}
	return names
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// nonNil copies s so JSON renders an empty array instead of null
func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
