package domain

// UnknownName is the sentinel used for any name the provider left out
const UnknownName = "Unknown"

// DefaultProbability stands in for a missing plant-match probability
const DefaultProbability = 0.6

// Identification is the provider response after ingestion.
// Every optional field has already been defaulted; business logic never sees nil.
type Identification struct {
	Suggestions []PlantSuggestion
}

// PlantSuggestion is one ranked plant match
type PlantSuggestion struct {
	PlantName      string  // UnknownName when absent
	Probability    float64 // 0 when absent
	HasProbability bool
	CommonNames    []string
	Diseases       []DiseaseCandidate
}

// DiseaseCandidate is one disease attached to a plant match
type DiseaseCandidate struct {
	Name        string // UnknownName when absent
	Description string
	Treatment   []string
	Severity    string // raw provider value, may be empty
}
