package cmd

import (
	"github.com/spf13/cobra"

	"image-pipeline/internal/logging"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all generated variants",
	Long: `Delete the output directory contents, including the manifest, and
reset the in-memory state. The input directory is never touched.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(_ *cobra.Command, _ []string) error {
	pipe, config, cleanup, err := buildPipeline()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := pipe.Clean(); err != nil {
		return err
	}

	logging.Info("Removed generated output under %s", config.OutputDir)
	return nil
}
