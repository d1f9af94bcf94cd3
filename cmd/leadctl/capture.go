package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leadflow/leadflow-backend/internal/intake/capture"
	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture one frame from the snapshot camera",
	Long: `Opens the configured snapshot camera for a slot, grabs a frame and writes
it as JPEG.

Examples:
  leadctl capture --slot rcFront --out rc.jpg`,
	RunE: runCapture,
}

func init() {
	f := captureCmd.Flags()
	f.String("slot", "", "document slot the frame is captured for")
	f.String("out", "capture.jpg", "output file")
	_ = captureCmd.MarkFlagRequired("slot")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rawSlot, _ := cmd.Flags().GetString("slot")
	out, _ := cmd.Flags().GetString("out")

	slot, err := domain.ParseSlot(rawSlot)
	if err != nil {
		return err
	}
	if cfg.Camera.SnapshotURL == "" {
		return errors.New("no camera configured: set LEADFLOW_CAMERA_SNAPSHOT_URL")
	}

	camera := capture.NewCamera(
		capture.NewSnapshotDevice(cfg.Camera.SnapshotURL, cfg.Camera.Timeout),
		capture.Constraints{FacingMode: cfg.Camera.FacingMode, Width: cfg.Camera.Width, Height: cfg.Camera.Height},
	)
	defer camera.Close()

	if err := camera.Start(ctx, slot); err != nil {
		return fmt.Errorf("start camera: %s", capture.Message(err))
	}
	image, err := camera.Capture(ctx, slot)
	if err != nil {
		return fmt.Errorf("capture: %s", capture.Message(err))
	}

	if err := os.WriteFile(out, image.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info().Str("slot", string(slot)).Str("file", out).Int("bytes", image.Size()).Msg("frame captured")
	return nil
}
