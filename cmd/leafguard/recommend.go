package main

import (
	"github.com/leafguard/backend/internal/delivery/cli"
	"github.com/leafguard/backend/internal/usecase"
	"github.com/spf13/cobra"
)

func newRecommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend [NAME]",
		Short: "Print built-in care advice for a disease name",
		Long: `Print the offline care recommendations for a disease name. No provider
is contacted and no configuration is needed. Omit NAME for a healthy plant.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return cli.RenderRecommendations(cmd.OutOrStdout(), name, usecase.GenerateRecommendations(name), outputFormat)
		},
	}
}
