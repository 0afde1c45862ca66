package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/leafguard/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ValidateFormat rejects unknown output formats
func ValidateFormat(format string) error {
	switch format {
	case FormatHuman, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (use human, json or yaml)", format)
}

// analysisReport is the machine-readable shape of an image analysis
type analysisReport struct {
	Analysis  *domain.AnalysisResult `json:"analysis" yaml:"analysis"`
	PlantInfo domain.PlantInfo       `json:"plantInfo" yaml:"plantInfo"`
}

type recommendationReport struct {
	Disease         string   `json:"disease" yaml:"disease"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// RenderAnalysis writes an image analysis result in the given format
func RenderAnalysis(w io.Writer, result *domain.AnalysisResult, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, analysisReport{Analysis: result, PlantInfo: result.PlantInfo})
	case FormatYAML:
		return writeYAML(w, analysisReport{Analysis: result, PlantInfo: result.PlantInfo})
	default:
		renderAnalysisHuman(w, result)
		return nil
	}
}

// RenderDisease writes disease enrichment details in the given format
func RenderDisease(w io.Writer, details domain.DiseaseDetails, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, details)
	case FormatYAML:
		return writeYAML(w, details)
	default:
		renderDiseaseHuman(w, details, "")
		return nil
	}
}

// RenderRecommendations writes the fallback care advice for a disease name
func RenderRecommendations(w io.Writer, disease string, recommendations []string, format string) error {
	report := recommendationReport{Disease: disease, Recommendations: recommendations}
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatYAML:
		return writeYAML(w, report)
	default:
		header := color.New(color.FgCyan, color.Bold)
		name := disease
		if strings.TrimSpace(name) == "" {
			name = "healthy plant"
		}
		header.Fprintf(w, "🌱 RECOMMENDATIONS FOR %s:\n", strings.ToUpper(name))
		writeList(w, recommendations, "   ")
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func renderAnalysisHuman(w io.Writer, result *domain.AnalysisResult) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Fprintln(w)

	match := result.PlantInfo.BestMatch
	cyan.Fprintln(w, "🌿 PLANT:")
	fmt.Fprintf(w, "   %s", match.ScientificName)
	if len(match.CommonNames) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(match.CommonNames, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	healthColor(result.Health).Fprintf(w, "📊 HEALTH: %d/100", result.Health)
	fmt.Fprintf(w, "   confidence %d%%\n\n", result.Confidence)

	if len(result.Diseases) == 0 {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "✅ No disease detected")
		fmt.Fprintln(w)
	} else {
		yellow.Fprintln(w, "⚠️  CONDITIONS FOUND:")
		for i, p := range result.Predictions {
			fmt.Fprintf(w, "   %d. %s %s ", i+1, severityIcon(p.Severity), p.Label)
			severityColor(p.Severity).Fprintf(w, "[%s]\n", strings.ToUpper(string(p.Severity)))
			if p.Details != nil {
				renderDiseaseHuman(w, *p.Details, "      ")
			}
			fmt.Fprintln(w)
		}
	}

	if len(result.Recommendations) > 0 {
		cyan.Fprintln(w, "💡 RECOMMENDATIONS:")
		writeList(w, result.Recommendations, "   ")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	bold.Fprintf(w, "%s", result.ID)
	fmt.Fprintf(w, "  %s  %s\n", result.Timestamp, color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

func renderDiseaseHuman(w io.Writer, d domain.DiseaseDetails, indent string) {
	if indent == "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s ", severityIcon(d.Severity))
		color.New(color.Bold).Fprint(w, d.DiseaseName)
		if d.ScientificName != "" {
			fmt.Fprintf(w, " (%s)", color.New(color.Italic).Sprint(d.ScientificName))
		}
		fmt.Fprint(w, " ")
		severityColor(d.Severity).Fprintf(w, "[%s]\n\n", strings.ToUpper(string(d.Severity)))
	}

	if d.Description != "" {
		fmt.Fprintf(w, "%s%s\n", indent, d.Description)
	}

	sections := []struct {
		title string
		items []string
	}{
		{"Causes", d.Causes},
		{"Symptoms", d.Symptoms},
		{"Prevention", d.Prevention},
		{"Treatment", d.Treatment},
		{"Affected plants", d.AffectedPlants},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s%s:\n", indent, color.CyanString(s.title))
		writeList(w, s.items, indent+"  ")
	}

	if d.IsContagious {
		fmt.Fprintf(w, "%s%s\n", indent, color.RedString("Contagious: isolate affected plants"))
	}
	if d.Cached {
		fmt.Fprintf(w, "%s%s\n", indent, color.HiBlackString("(cached)"))
	}
}

func writeList(w io.Writer, items []string, indent string) {
	for _, item := range items {
		fmt.Fprintf(w, "%s• %s\n", indent, item)
	}
}

func healthColor(health int) *color.Color {
	switch {
	case health >= 80:
		return color.New(color.FgGreen, color.Bold)
	case health >= 50:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func severityColor(severity domain.Severity) *color.Color {
	switch severity {
	case domain.SeverityHigh:
		return color.New(color.FgRed)
	case domain.SeverityMedium:
		return color.New(color.FgYellow)
	case domain.SeverityLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func severityIcon(severity domain.Severity) string {
	switch severity {
	case domain.SeverityHigh:
		return "🟠"
	case domain.SeverityMedium:
		return "🟡"
	case domain.SeverityLow:
		return "🟢"
	default:
		return "⚪"
	}
}
