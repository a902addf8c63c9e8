package handlers

import (
	"net/http"
	"runtime"
	"time"

	"image-pipeline/internal/startup"
)

const (
	statusHealthy    = "healthy"
	statusProcessing = "processing"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Processing   bool   `json:"processing"`
	LastRun      string `json:"lastRun,omitempty"`
	LastRunError string `json:"lastRunError,omitempty"`

	ManifestImages int `json:"manifestImages"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:         statusHealthy,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Processing:     h.pipe.IsProcessing(),
		ManifestImages: h.pipe.Store().Len(),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	if response.Processing {
		response.Status = statusProcessing
	}

	if lastRun, lastErr := h.pipe.LastRun(); !lastRun.IsZero() {
		response.LastRun = lastRun.Format(time.RFC3339)
		if lastErr != nil {
			response.LastRunError = lastErr.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the server is accepting traffic. Serving
// does not depend on a completed batch run, so readiness tracks only the
// HTTP layer being up.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
