package pipeline

import (
	"path/filepath"

	"image-pipeline/internal/filesystem"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/metrics"
)

// IsStale decides whether the original at relPath needs regeneration:
//
//  1. no manifest entry, or an entry with zero variants
//  2. any variant's output file missing from disk
//  3. the source file is newer than the first variant's output file
//
// Only the first variant's mtime is compared in step 3. That keeps staleness
// probing cheap; a forced full run is the recovery path for partial
// corruption of later variants.
func (p *Pipeline) IsStale(relPath string) bool {
	stale := p.checkStale(relPath)

	result := "fresh"
	if stale {
		result = "stale"
	}
	metrics.StalenessChecksTotal.WithLabelValues(result).Inc()

	return stale
}

func (p *Pipeline) checkStale(relPath string) bool {
	entry, ok := p.store.Entry(relPath)
	if !ok || len(entry.Variants) == 0 {
		logging.Debug("staleness: %s has no manifest entry", relPath)
		return true
	}

	for _, v := range entry.Variants {
		if _, err := filesystem.Stat(filepath.Join(p.cfg.OutputDir, filepath.FromSlash(v.Path))); err != nil {
			logging.Debug("staleness: %s missing variant file %s", relPath, v.Path)
			return true
		}
	}

	srcInfo, err := filesystem.Stat(filepath.Join(p.cfg.InputDir, filepath.FromSlash(relPath)))
	if err != nil {
		// Source vanished; let generation report it properly.
		logging.Debug("staleness: cannot stat source %s: %v", relPath, err)
		return true
	}

	first := entry.Variants[0]
	outInfo, err := filesystem.Stat(filepath.Join(p.cfg.OutputDir, filepath.FromSlash(first.Path)))
	if err != nil {
		return true
	}

	if srcInfo.ModTime().After(outInfo.ModTime()) {
		logging.Debug("staleness: %s source newer than %s", relPath, first.Path)
		return true
	}

	return false
}
