package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"image-pipeline/internal/handlers"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/metrics"
	"image-pipeline/internal/middleware"
	"image-pipeline/internal/startup"
	"image-pipeline/internal/watcher"
)

var serveNoProcess bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the image server",
	Long: `Start the HTTP server. Runs an initial batch pass over the input
directory (unless --no-process is set), then serves pre-built variants,
generates missing ones on the fly, and optionally watches the input
directory for changes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveNoProcess, "no-process", false, "skip the initial batch run")
}

func runServe(_ *cobra.Command, _ []string) error {
	startTime := time.Now()

	pipe, config, cleanup, err := buildPipeline()
	if err != nil {
		return err
	}
	defer cleanup()

	metrics.InitializeMetrics()

	// Initial batch pass in the background so the server accepts traffic
	// immediately; on-the-fly generation covers requests that arrive before
	// the pass finishes.
	if !serveNoProcess {
		go func() {
			if err := pipe.ProcessAll(context.Background(), false); err != nil {
				logging.Error("Initial batch run failed: %v", err)
			}
		}()
	}

	var w *watcher.Watcher
	if config.Watch {
		w = watcher.New(config, pipe)
		if err := w.Start(); err != nil {
			return err
		}
	}

	h := handlers.New(pipe, config)
	router := h.Router()

	loggedHandler := middleware.Logger(middleware.DefaultLoggingConfig())(router)
	handler := middleware.Metrics(middleware.DefaultMetricsConfig(config.PublicPath))(loggedHandler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, w)

	startup.LogServerStarted(config.Port, config.MetricsPort, config.MetricsEnabled, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func handleShutdown(srv, metricsSrv *http.Server, w *watcher.Watcher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if w != nil {
		w.Stop()
		startup.LogShutdownStepComplete("File watcher stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
