package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"image-pipeline/internal/logging"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Rebuild the manifest from disk",
	Long: `Rebuild the manifest by scanning originals and recording only the
variant files that actually exist in the output directory. No variants are
generated. Useful after manual edits to the output tree or a corrupted
manifest.`,
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(_ *cobra.Command, _ []string) error {
	pipe, _, cleanup, err := buildPipeline()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipe.WriteManifest(ctx); err != nil {
		return err
	}

	logging.Info("Manifest written with %d image(s)", pipe.Store().Len())
	return nil
}
