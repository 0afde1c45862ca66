package domain

import "strings"

// Severity is the coarse impact level of a detected condition
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity maps a provider value onto a Severity, case-insensitively.
// ok is false when the value is not one of low/medium/high.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	}
	return SeverityMedium, false
}

// SeverityFromConfidence buckets a 0-1 confidence into a Severity
func SeverityFromConfidence(confidence float64) Severity {
	switch {
	case confidence > 0.7:
		return SeverityHigh
	case confidence > 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AnalysisResult is the normalized outcome of analyzing one leaf image
type AnalysisResult struct {
	ID              string           `json:"id"`
	Health          int              `json:"health"`
	Diseases        []string         `json:"diseases"`
	Recommendations []string         `json:"recommendations"`
	Confidence      int              `json:"confidence"` // percentage 0-100
	Predictions     []Prediction     `json:"predictions"`
	Timestamp       string           `json:"timestamp"`
	ImageURL        string           `json:"imageUrl,omitempty"`
	Metadata        AnalysisMetadata `json:"metadata"`
	PlantInfo       PlantInfo        `json:"-" yaml:"-"`
}

// AnalysisMetadata describes which provider produced the analysis
type AnalysisMetadata struct {
	Model             string `json:"model"`
	Version           string `json:"version"`
	AnalysisProvider  string `json:"analysis_provider"`
	AnalysisTimestamp string `json:"analysis_timestamp"`
}

// Prediction is one identified condition.
// Label and Disease carry the same value; the dashboard reads both.
type Prediction struct {
	Label           string          `json:"label"`
	Disease         string          `json:"disease"`
	Confidence      float64         `json:"confidence"` // 0-1
	Severity        Severity        `json:"severity"`
	Recommendations []string        `json:"recommendations"`
	Details         *DiseaseDetails `json:"details,omitempty"`
}

// DiseaseDetails is the enrichment payload for a single disease
type DiseaseDetails struct {
	DiseaseName    string   `json:"disease_name" yaml:"disease_name"`
	ScientificName string   `json:"scientific_name,omitempty" yaml:"scientific_name,omitempty"`
	Description    string   `json:"description" yaml:"description"`
	Causes         []string `json:"causes" yaml:"causes"`
	Symptoms       []string `json:"symptoms" yaml:"symptoms"`
	Prevention     []string `json:"prevention" yaml:"prevention"`
	Treatment      []string `json:"treatment" yaml:"treatment"`
	Severity       Severity `json:"severity" yaml:"severity"`
	IsContagious   bool     `json:"is_contagious" yaml:"is_contagious"`
	AffectedPlants []string `json:"affected_plants" yaml:"affected_plants"`
	Cached         bool     `json:"_cached,omitempty" yaml:"cached,omitempty"`
}

// PlantInfo summarizes the best plant match returned by the provider
type PlantInfo struct {
	BestMatch PlantMatchInfo `json:"bestMatch"`
}

// PlantMatchInfo is the provider's top plant suggestion
type PlantMatchInfo struct {
	CommonNames    []string `json:"commonNames"`
	ScientificName string   `json:"scientificName"`
	Score          *float64 `json:"score,omitempty"`
}

// ImageUpload is a submitted image with its declared metadata
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// DiseaseAnalysisRequest asks for enrichment of a single disease name
type DiseaseAnalysisRequest struct {
	DiseaseName string   `json:"diseaseName" binding:"required"`
	Confidence  *float64 `json:"confidence"`
}
