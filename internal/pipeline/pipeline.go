package pipeline

import (
	"sync"
	"time"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/manifest"
	"image-pipeline/internal/metrics"
	"image-pipeline/internal/startup"
)

// Pipeline owns all mutable pipeline state: the manifest store, the
// single-flight batch guard and run bookkeeping. One instance is created at
// process start and shared by the batch path, the watcher and the HTTP
// handlers; there are no package-level mutable globals.
type Pipeline struct {
	cfg   *startup.Config
	codec codec.Codec
	store *manifest.Store

	// Single-flight guard for batch runs.
	runMu     sync.Mutex
	isRunning bool

	stateMu     sync.Mutex
	lastRunTime time.Time
	lastRunErr  error
}

// New creates a Pipeline. The manifest store starts with whatever Load found
// on disk; callers decide when to Load.
func New(cfg *startup.Config, c codec.Codec, store *manifest.Store) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		codec: c,
		store: store,
	}
}

// Store exposes the shared manifest store.
func (p *Pipeline) Store() *manifest.Store {
	return p.store
}

// Config exposes the active configuration.
func (p *Pipeline) Config() *startup.Config {
	return p.cfg
}

// Persist writes the manifest to disk. It is the single persistence path
// shared by the batch orchestrator, the debounced watcher and the on-the-fly
// resolver. A no-op when manifest generation is disabled.
func (p *Pipeline) Persist() error {
	if !p.cfg.GenerateManifest {
		return nil
	}
	return p.save()
}

// save writes the manifest unconditionally. The explicit `manifest` CLI
// operation uses it directly, bypassing the GenerateManifest gate.
func (p *Pipeline) save() error {
	if err := p.store.Save(); err != nil {
		metrics.ManifestSavesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.ManifestSavesTotal.WithLabelValues("success").Inc()
	metrics.ManifestEntries.Set(float64(p.store.Len()))
	return nil
}

// IsProcessing reports whether a batch run is in flight.
func (p *Pipeline) IsProcessing() bool {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.isRunning
}

// LastRun returns the completion time and error of the last batch run.
func (p *Pipeline) LastRun() (time.Time, error) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.lastRunTime, p.lastRunErr
}

// tryStartRun attempts to acquire the single-flight batch guard. It returns
// false when a run is already in flight; the caller must treat that as a
// no-op, not an error.
func (p *Pipeline) tryStartRun() bool {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.isRunning {
		return false
	}
	p.isRunning = true
	return true
}

// finishRun releases the single-flight guard and records the run outcome.
// Called via defer so the guard clears on every exit path.
func (p *Pipeline) finishRun(err error) {
	p.stateMu.Lock()
	p.lastRunTime = time.Now()
	p.lastRunErr = err
	p.stateMu.Unlock()

	p.runMu.Lock()
	p.isRunning = false
	p.runMu.Unlock()
}
