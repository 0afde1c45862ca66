package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/leafguard/backend/config"
	"github.com/leafguard/backend/internal/app"
	"github.com/leafguard/backend/internal/delivery/cli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "v1.0.0" // Overwritten at build time

	configFile   string
	outputFormat string
	verbose      bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leafguard",
		Short: "Plant disease detection from leaf images",
		Long: `leafguard identifies the plant in a leaf photo, detects diseases and
explains them, using the same pipeline as the LeafGuard API server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFormat(outputFormat)
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", cli.FormatHuman, "Output format (human, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline details to stderr")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newDiseaseCmd(),
		newRecommendCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "leafguard version %s\n", version)
		},
	}
}

// loadServices reads configuration and builds the pipeline
func loadServices() (*app.Services, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = app.NewLogger("debug", false); err != nil {
			return nil, err
		}
	}

	return app.NewServices(cfg, logger)
}

// startSpinner shows progress on stderr in human mode only
func startSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	if outputFormat == cli.FormatHuman && !verbose {
		s.Start()
	}
	return s
}

func printSuccess(msg string) {
	if outputFormat != cli.FormatHuman {
		return
	}
	color.New(color.FgGreen).Fprintf(os.Stderr, "✓ %s\n", msg)
}
