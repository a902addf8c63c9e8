package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/imagepath"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/metrics"
	"image-pipeline/internal/pipeline"
)

// ServeImage serves an image under the public path. Three request shapes
// are recognized, checked in order:
//
//  1. Query parameters (?w=, &format=, &q=) produce a one-off transform
//     that is never cached to disk.
//  2. A variant-shaped name (stem-640w.webp) serves the pre-built file, or
//     generates and disk-caches it on the fly from the original.
//  3. Anything else is served verbatim from the output tree, falling back
//     to the input tree.
//
// The delivery path taken is reported in the X-Image-Source header.
func (h *Handlers) ServeImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	relPath := vars["path"]

	if relPath == "" {
		http.Error(w, "Path is required", http.StatusBadRequest)
		return
	}

	// Security check
	if !isSubPath(h.inputDir, filepath.Join(h.inputDir, filepath.FromSlash(relPath))) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Has("w") || r.URL.Query().Has("format") || r.URL.Query().Has("q") {
		h.serveQuery(w, r, relPath)
		return
	}

	if v, ok := imagepath.MatchVariant(relPath); ok {
		h.serveVariant(w, r, relPath, v)
		return
	}

	h.servePlain(w, r, relPath)
}

// serveQuery handles ?w=&format=&q= requests. The result is computed per
// request and never written to the variant cache.
func (h *Handlers) serveQuery(w http.ResponseWriter, r *http.Request, relPath string) {
	q := r.URL.Query()

	width := 0
	if raw := q.Get("w"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}

	var format codec.Format
	if raw := q.Get("format"); raw != "" {
		f, err := codec.ParseFormat(raw)
		if err != nil {
			http.Error(w, "Unsupported format", http.StatusBadRequest)
			return
		}
		format = f
	}

	quality := 0
	if raw := q.Get("q"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "Invalid quality", http.StatusBadRequest)
			return
		}
		quality = n
	}

	result, err := h.pipe.ResolveQuery(r.Context(), relPath, width, format, quality)
	if err != nil {
		h.serveError(w, relPath, err)
		return
	}

	h.writeResult(w, r, result)
}

// serveVariant handles variant-shaped paths, generating and caching the
// variant when it is not already on disk.
func (h *Handlers) serveVariant(w http.ResponseWriter, r *http.Request, relPath string, v imagepath.Variant) {
	result, err := h.pipe.ResolveVariant(r.Context(), relPath, v)
	if err != nil {
		h.serveError(w, relPath, err)
		return
	}

	h.writeResult(w, r, result)
}

// servePlain serves a file verbatim from the output tree, or the input
// tree when the output copy does not exist.
func (h *Handlers) servePlain(w http.ResponseWriter, r *http.Request, relPath string) {
	result, err := h.pipe.ResolvePlain(relPath)
	if err != nil {
		h.serveError(w, relPath, err)
		return
	}

	h.writeResult(w, r, result)
}

func (h *Handlers) writeResult(w http.ResponseWriter, r *http.Request, result *pipeline.ServeResult) {
	metrics.ServeRequestsTotal.WithLabelValues(string(result.Source), "200").Inc()

	w.Header().Set("X-Image-Source", string(result.Source))
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if result.FilePath != "" {
		w.Header().Set("Content-Type", result.ContentType)
		http.ServeFile(w, r, result.FilePath)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(result.Data); err != nil {
		logging.Debug("Failed to write image response: %v", err)
	}
}

func (h *Handlers) serveError(w http.ResponseWriter, relPath string, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		metrics.ServeRequestsTotal.WithLabelValues("none", "404").Inc()
		logging.Debug("Image not found: %s", relPath)
		http.Error(w, "Image not found", http.StatusNotFound)
	default:
		metrics.ServeRequestsTotal.WithLabelValues("none", "500").Inc()
		logging.Error("Failed to serve %s: %v", relPath, err)
		http.Error(w, "Failed to process image", http.StatusInternalServerError)
	}
}

// isSubPath reports whether target resolves to a path inside base.
func isSubPath(base, target string) bool {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
