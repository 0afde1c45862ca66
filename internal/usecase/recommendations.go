package usecase

import "strings"

// recommendationRule pairs a predicate on the lowercased disease name with the
// advice returned when it matches. Rules are evaluated in order; first match wins.
type recommendationRule struct {
	matches   func(name string) bool
	advice    []string
	universal bool
}

var universalTips = []string{
	"Ensure proper sunlight for species; avoid waterlogging.",
	"Sanitize tools and remove plant debris around the base.",
}

var recommendationRules = []recommendationRule{
	{
		matches: func(name string) bool {
			return name == "" || strings.Contains(name, "healthy") || strings.Contains(name, "no disease")
		},
		advice: []string{
			"Plant appears healthy. Maintain current care routine.",
			"Water when the top inch of soil is dry and ensure proper drainage.",
			"Provide adequate sunlight and monitor regularly.",
		},
	},
	{
		matches: containsAny("mildew", "powdery"),
		advice: []string{
			"Improve air circulation and avoid overhead watering.",
			"Prune crowded foliage; apply neem oil or potassium bicarbonate spray.",
			"Remove heavily infected leaves.",
		},
		universal: true,
	},
	{
		matches: containsAny("leaf spot", "spot", "blight"),
		advice: []string{
			"Remove and dispose of infected leaves to reduce spread.",
			"Water at the base; avoid wetting foliage.",
			"Consider a copper-based fungicide if symptoms persist.",
		},
		universal: true,
	},
	{
		matches: containsAny("rust"),
		advice: []string{
			"Remove infected leaves and increase spacing for airflow.",
			"Apply sulfur or copper-based fungicide as directed.",
		},
		universal: true,
	},
	{
		matches: containsAny("mosaic", "virus"),
		advice: []string{
			"Isolate the plant; disinfect tools.",
			"Control insect vectors (e.g., aphids).",
			"Remove severely affected plants if spread is likely.",
		},
		universal: true,
	},
}

// defaultRule applies when no other rule matches
var defaultRule = recommendationRule{
	matches: func(string) bool { return true },
	advice: []string{
		"Isolate affected plant to prevent spread.",
		"Remove visibly affected parts and improve growing conditions.",
		"Monitor progression and apply targeted treatment if identified.",
	},
	universal: true,
}

// GenerateRecommendations returns generic care advice for a disease name.
// It is total: every input yields between 3 and 5 items, in a fresh slice.
func GenerateRecommendations(diseaseName string) []string {
	name := strings.ToLower(strings.TrimSpace(diseaseName))

	rule := defaultRule
	for _, r := range recommendationRules {
		if r.matches(name) {
			rule = r
			break
		}
	}

	out := make([]string, 0, len(rule.advice)+len(universalTips))
	out = append(out, rule.advice...)
	if rule.universal {
		out = append(out, universalTips...)
	}
	return out
}

func containsAny(substrings ...string) func(string) bool {
	return func(name string) bool {
		for _, s := range substrings {
			if strings.Contains(name, s) {
				return true
			}
		}
		return false
	}
}
