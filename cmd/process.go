package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"image-pipeline/internal/logging"
)

var processForce bool

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a single batch pass and exit",
	Long: `Scan the input directory, regenerate variants for every stale
original, write the manifest, and exit. With --force every original is
regenerated regardless of staleness.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().BoolVar(&processForce, "force", false, "regenerate all variants regardless of staleness")
}

func runProcess(_ *cobra.Command, _ []string) error {
	pipe, _, cleanup, err := buildPipeline()
	if err != nil {
		return err
	}
	defer cleanup()

	// Ctrl-C cancels the run; completed variants stay on disk and the next
	// pass picks up where this one left off.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipe.ProcessAll(ctx, processForce); err != nil {
		return err
	}

	logging.Info("Batch run complete")
	return nil
}
