package handlers

import (
	"context"
	"net/http"
	"time"

	"image-pipeline/internal/logging"
)

// GetManifest returns the current manifest as JSON.
func (h *Handlers) GetManifest(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.pipe.Store().Snapshot()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, snapshot)
}

// StatusResponse reports batch pipeline state.
type StatusResponse struct {
	Processing   bool   `json:"processing"`
	LastRun      string `json:"lastRun,omitempty"`
	LastRunError string `json:"lastRunError,omitempty"`
	Images       int    `json:"images"`
}

// GetStatus returns the batch pipeline run state.
func (h *Handlers) GetStatus(w http.ResponseWriter, _ *http.Request) {
	response := StatusResponse{
		Processing: h.pipe.IsProcessing(),
		Images:     h.pipe.Store().Len(),
	}
	if lastRun, lastErr := h.pipe.LastRun(); !lastRun.IsZero() {
		response.LastRun = lastRun.Format(time.RFC3339)
		if lastErr != nil {
			response.LastRunError = lastErr.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// TriggerProcess starts a batch run in the background. A run already in
// progress makes this a no-op; the guard inside ProcessAll decides, so
// concurrent triggers cannot race.
func (h *Handlers) TriggerProcess(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	if h.pipe.IsProcessing() {
		w.WriteHeader(http.StatusConflict)
		writeJSONStatus(w, "already_running")
		return
	}

	go func() {
		// Detached from the request context so the run survives the 202
		// response.
		if err := h.pipe.ProcessAll(context.Background(), force); err != nil {
			logging.Error("Triggered batch run failed: %v", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSONStatus(w, "started")
}
