package handlers

import (
	"github.com/gorilla/mux"
)

// Router builds the HTTP route table. Health and version endpoints sit at
// fixed paths; everything under the public path resolves as an image.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	// Health check endpoints
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Pipeline API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/manifest", h.GetManifest).Methods("GET")
	api.HandleFunc("/status", h.GetStatus).Methods("GET")
	api.HandleFunc("/process", h.TriggerProcess).Methods("POST")

	// Image serving under the public path
	public := h.publicPath
	if public == "" {
		public = "/images"
	}
	r.HandleFunc(public+"/{path:.*}", h.ServeImage).Methods("GET", "HEAD")

	return r
}
