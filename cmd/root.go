package cmd

import (
	"github.com/spf13/cobra"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/manifest"
	"image-pipeline/internal/pipeline"
	"image-pipeline/internal/startup"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "image-pipeline",
	Short: "Responsive image variant pipeline and server",
	Long: `image-pipeline generates resized and reformatted variants of source
images, tracks them in a JSON manifest, and serves them over HTTP with
on-the-fly generation for variants that do not exist yet.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logging.SetLevel(logging.LevelDebug)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pipeline.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// buildPipeline loads configuration and assembles a pipeline with the best
// available codec and the manifest read from disk. The returned cleanup
// function releases codec resources and must run before process exit.
func buildPipeline() (*pipeline.Pipeline, *startup.Config, func(), error) {
	config, err := startup.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	c, cleanup := newCodec()

	store := manifest.NewStore(config.ManifestPath)
	if store.Load() {
		logging.Info("Loaded manifest with %d image(s) from %s", store.Len(), store.Path())
	} else {
		logging.Info("No usable manifest at %s, starting cold", store.Path())
	}

	return pipeline.New(config, c, store), config, cleanup, nil
}

// newCodec prefers libvips and falls back to the pure-Go codec when vips
// cannot be initialized in this environment.
func newCodec() (codec.Codec, func()) {
	if err := codec.InitVips(); err == nil {
		if vc, err := codec.NewVipsCodec(); err == nil {
			return vc, codec.ShutdownVips
		}
	} else {
		logging.Warn("libvips unavailable, using pure-Go codec: %v", err)
	}
	return codec.NewImagingCodec(), func() {}
}
