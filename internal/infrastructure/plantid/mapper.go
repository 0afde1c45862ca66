package plantid

import (
	"strings"

	"github.com/leafguard/backend/internal/domain"
)

// treatmentGroups is the order in which grouped treatment advice is flattened
var treatmentGroups = []string{"chemical", "biological", "prevention"}

// MapIdentification converts a decoded provider payload into a domain Identification.
// The payload is untrusted: every field is optional and wrongly-typed values are
// treated as absent, so this never fails.
func MapIdentification(payload interface{}) *domain.Identification {
	root := asMap(payload)
	rawSuggestions := asSlice(root["suggestions"])

	identification := &domain.Identification{
		Suggestions: make([]domain.PlantSuggestion, 0, len(rawSuggestions)),
	}
	for _, raw := range rawSuggestions {
		identification.Suggestions = append(identification.Suggestions, mapSuggestion(asMap(raw)))
	}

	return identification
}

func mapSuggestion(s map[string]interface{}) domain.PlantSuggestion {
	suggestion := domain.PlantSuggestion{
		PlantName:   firstString(s["plant_name"]),
		CommonNames: asStringSlice(s["common_names"]),
	}
	if suggestion.PlantName == "" {
		suggestion.PlantName = domain.UnknownName
	}
	if len(suggestion.CommonNames) == 0 {
		suggestion.CommonNames = asStringSlice(asMap(s["plant_details"])["common_names"])
	}
	if p, ok := asFloat(s["probability"]); ok {
		suggestion.Probability = p
		suggestion.HasProbability = true
	}

	for _, raw := range asSlice(s["diseases"]) {
		suggestion.Diseases = append(suggestion.Diseases, mapDisease(asMap(raw)))
	}

	return suggestion
}

func mapDisease(d map[string]interface{}) domain.DiseaseCandidate {
	details := asMap(d["disease_details"])

	candidate := domain.DiseaseCandidate{
		Name:        firstString(d["name"], asMap(d["disease"])["name"]),
		Description: textValue(d["description"]),
		Severity:    firstString(d["severity"]),
	}
	if candidate.Name == "" {
		candidate.Name = domain.UnknownName
	}
	if candidate.Description == "" {
		candidate.Description = textValue(details["description"])
	}

	candidate.Treatment = treatmentList(d["treatment"])
	if len(candidate.Treatment) == 0 {
		candidate.Treatment = treatmentList(d["treatments"])
	}
	if len(candidate.Treatment) == 0 {
		candidate.Treatment = treatmentList(details["treatment"])
	}

	return candidate
}

// treatmentList accepts either a list of strings or an object of grouped lists
func treatmentList(v interface{}) []string {
	if list := asStringSlice(v); len(list) > 0 {
		return list
	}

	grouped := asMap(v)
	var out []string
	for _, group := range treatmentGroups {
		out = append(out, asStringSlice(grouped[group])...)
	}
	return out
}

// textValue reads either a plain string or a {"value": "..."} object
func textValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	if s, ok := asMap(v)["value"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// firstString returns the first non-empty string among candidates
func firstString(candidates ...interface{}) string {
	for _, c := range candidates {
		if s, ok := c.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asSlice(v interface{}) []interface{} {
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return nil
}

func asFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// asStringSlice keeps the non-empty string elements of a JSON array
func asStringSlice(v interface{}) []string {
	var out []string
	for _, item := range asSlice(v) {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
