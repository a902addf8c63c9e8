package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	formats := []string{"webp", "avif", "jpeg", "png"}

	for _, f := range formats {
		VariantsGeneratedTotal.WithLabelValues(f)
		VariantEncodeFailures.WithLabelValues(f)
		VariantEncodeDuration.WithLabelValues(f)
	}

	for _, reason := range []string{"exists", "too_wide"} {
		VariantsSkippedTotal.WithLabelValues(reason)
	}

	for _, result := range []string{"stale", "fresh"} {
		StalenessChecksTotal.WithLabelValues(result)
	}

	// Successful serves carry the delivery source; failures carry "none".
	for _, source := range []string{"cached", "generated", "original"} {
		ServeRequestsTotal.WithLabelValues(source, "200")
	}
	for _, status := range []string{"404", "500"} {
		ServeRequestsTotal.WithLabelValues("none", status)
	}

	for _, status := range []string{"success", "error"} {
		ManifestSavesTotal.WithLabelValues(status)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}
}
