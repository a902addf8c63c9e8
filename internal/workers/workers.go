package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the number of originals to process in parallel during a
// batch run. It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The limit parameter caps the worker count to prevent resource exhaustion;
// use 0 for no limit. Can be overridden with the VARIANT_WORKERS environment
// variable.
func Count(limit int) int {
	if override := os.Getenv("VARIANT_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// Encoding is CPU-bound, one worker per available CPU.
	count := runtime.GOMAXPROCS(0)

	if count < 1 {
		count = 1
	}
	if limit > 0 && count > limit {
		count = limit
	}

	return count
}
