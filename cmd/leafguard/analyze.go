package main

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/leafguard/backend/internal/delivery/cli"
	"github.com/leafguard/backend/internal/domain"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze IMAGE",
		Short: "Identify the plant in a leaf image and detect diseases",
		Long: `Send a local leaf image through identification, normalization and
disease enrichment.

Examples:
  # Analyze a photo
  leafguard analyze tomato-leaf.jpg

  # Machine-readable output
  leafguard analyze tomato-leaf.jpg -o json`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	upload, err := readImage(args[0])
	if err != nil {
		return err
	}

	services, err := loadServices()
	if err != nil {
		return err
	}

	s := startSpinner("Analyzing leaf image...")
	result, err := services.Analysis.Analyze(context.Background(), upload)
	s.Stop()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	printSuccess("Analysis complete")

	return cli.RenderAnalysis(cmd.OutOrStdout(), result, outputFormat)
}

// readImage loads a file and derives its content type from the extension,
// falling back to content sniffing
func readImage(path string) (*domain.ImageUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &domain.ImageUpload{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}
