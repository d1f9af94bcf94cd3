package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leadflow/leadflow-backend/internal/intake/capture"
	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/internal/intake/extraction"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run one document extraction and print the result",
	Long: `Reads an image file and sends it to the configured recognizer once.

Examples:
  # Recognize a registration certificate
  leadctl extract --type rc --file rc.jpg

  # Use the vision service instead of the default provider
  LEADFLOW_RECOGNITION_PROVIDER=vision leadctl extract --type aadhaar --file id.jpg`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.String("type", "", "document type: aadhaar, rc or insurance")
	f.String("file", "", "image file to recognize")
	_ = extractCmd.MarkFlagRequired("type")
	_ = extractCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rawType, _ := cmd.Flags().GetString("type")
	path, _ := cmd.Flags().GetString("file")

	docType, err := domain.ParseDocumentType(rawType)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	image, err := capture.SelectFile(f)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	client, err := extraction.NewFromConfig(cfg.Recognition)
	if err != nil {
		return fmt.Errorf("create extraction client: %w", err)
	}

	log.Info().
		Str("doc_type", string(docType)).
		Str("provider", cfg.Recognition.Provider).
		Int("bytes", image.Size()).
		Msg("extracting document")

	result, err := client.Extract(ctx, image, docType)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
