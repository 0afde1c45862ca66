package main

import (
	"context"
	"fmt"

	"github.com/leafguard/backend/internal/delivery/cli"
	"github.com/spf13/cobra"
)

func newDiseaseCmd() *cobra.Command {
	var confidence float64

	cmd := &cobra.Command{
		Use:   "disease NAME",
		Short: "Explain a plant disease",
		Long: `Generate a structured explanation for a disease name: causes, symptoms,
prevention and treatment. Falls back to a stub when generation is unavailable.

Examples:
  leafguard disease "Powdery mildew"
  leafguard disease "Early blight" --confidence 0.85 -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if confidence < 0 || confidence > 1 {
				return fmt.Errorf("--confidence must be between 0 and 1, got %v", confidence)
			}

			services, err := loadServices()
			if err != nil {
				return err
			}

			s := startSpinner("Generating disease analysis...")
			details := services.Enrichment.GetDiseaseAnalysis(context.Background(), args[0], confidence)
			s.Stop()

			return cli.RenderDisease(cmd.OutOrStdout(), details, outputFormat)
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", 0.5, "Detection confidence between 0 and 1")
	return cmd
}
