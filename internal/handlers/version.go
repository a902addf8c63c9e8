package handlers

import (
	"net/http"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/startup"
)

// VersionResponse extends build info with the active image codec backend,
// which matters when diagnosing format support (avif needs libvips).
type VersionResponse struct {
	startup.BuildInfo
	Codec string `json:"codec"`
}

// GetVersion returns the application version, build information, and the
// codec backend in use.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	backend := "imaging"
	if codec.IsVipsAvailable() {
		backend = "vips"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, VersionResponse{
		BuildInfo: startup.GetBuildInfo(),
		Codec:     backend,
	})
}
