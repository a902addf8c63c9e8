package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_pipeline_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_pipeline_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Batch pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_pipeline_runs_total",
			Help: "Total number of batch pipeline runs",
		},
	)

	PipelineLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_pipeline_last_run_timestamp",
			Help: "Timestamp of the last batch pipeline run",
		},
	)

	PipelineLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_pipeline_last_run_duration_seconds",
			Help: "Duration of the last batch pipeline run in seconds",
		},
	)

	PipelineIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_pipeline_running",
			Help: "Whether a batch pipeline run is in progress (1 = running, 0 = idle)",
		},
	)

	PipelineErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_pipeline_errors_total",
			Help: "Total number of batch pipeline errors",
		},
	)

	StalenessChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_staleness_checks_total",
			Help: "Total number of staleness checks by result",
		},
		[]string{"result"}, // "stale", "fresh"
	)
)

// Variant generation metrics
var (
	VariantsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_variants_generated_total",
			Help: "Total number of variants encoded and written",
		},
		[]string{"format"},
	)

	VariantsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_variants_skipped_total",
			Help: "Total number of variants skipped without encoding",
		},
		[]string{"reason"}, // "exists", "too_wide"
	)

	VariantEncodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_variant_encode_failures_total",
			Help: "Total number of per-variant encode failures",
		},
		[]string{"format"},
	)

	VariantEncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_pipeline_variant_encode_duration_seconds",
			Help:    "Duration of single variant encodes in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"},
	)

	SourceErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_pipeline_source_errors_total",
			Help: "Total number of originals skipped because the source was unreadable",
		},
	)
)

// On-the-fly serving metrics
var (
	ServeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_serve_requests_total",
			Help: "Total number of image serve requests by delivery source",
		},
		[]string{"source", "status"}, // source: "cached", "generated", "original"
	)

	ServeGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_pipeline_serve_generation_duration_seconds",
			Help:    "Duration of on-the-fly variant generation in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

// Watcher / debouncer metrics
var (
	WatchEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_pipeline_watch_events_total",
			Help: "Total number of qualifying file-change events observed",
		},
	)

	DebounceBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_pipeline_debounce_batches_total",
			Help: "Total number of drained debounce batches",
		},
	)

	DebouncePendingPaths = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_pipeline_debounce_pending_paths",
			Help: "Number of paths currently awaiting debounced regeneration",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_filesystem_stale_errors_total",
			Help: "Total number of NFS stale file handle errors observed",
		},
		[]string{"operation"}, // "stat", "open"
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)
)

// Manifest metrics
var (
	ManifestSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_pipeline_manifest_saves_total",
			Help: "Total number of manifest persistence operations",
		},
		[]string{"status"}, // "success", "error"
	)

	ManifestEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_pipeline_manifest_entries",
			Help: "Number of originals currently tracked in the manifest",
		},
	)
)
