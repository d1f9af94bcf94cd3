package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadflow/leadflow-backend/pkg/config"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "leadctl",
	Short: "Operator tooling for the lead intake service",
	Long:  "Runs single document extractions, camera captures and event taps against the configured lead intake backends.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load("leadctl")
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		log = logger.NewWithWriter("leadctl", cmd.ErrOrStderr())
		return nil
	},
	SilenceUsage: true,
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
