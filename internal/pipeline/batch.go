package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/imagepath"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/manifest"
	"image-pipeline/internal/metrics"
	"image-pipeline/internal/workers"

	"golang.org/x/sync/errgroup"
)

// ProcessAll discovers every supported image under the input root and
// regenerates the stale ones (or all of them when forceAll is set), then
// stamps and persists the manifest.
//
// At most one batch run is in flight per process: a second concurrent call
// is a no-op returning nil, not queued and not an error.
func (p *Pipeline) ProcessAll(ctx context.Context, forceAll bool) (err error) {
	if !p.tryStartRun() {
		logging.Info("batch: run already in progress, skipping")
		return nil
	}
	defer func() { p.finishRun(err) }()

	metrics.PipelineIsRunning.Set(1)
	defer metrics.PipelineIsRunning.Set(0)
	metrics.PipelineRunsTotal.Inc()

	start := time.Now()

	originals, err := p.discoverOriginals()
	if err != nil {
		metrics.PipelineErrors.Inc()
		return err
	}
	logging.Info("batch: discovered %d originals under %s", len(originals), p.cfg.InputDir)

	toProcess := originals
	if !forceAll {
		toProcess = nil
		for _, rel := range originals {
			if p.IsStale(rel) {
				toProcess = append(toProcess, rel)
			}
		}
		if len(toProcess) == 0 {
			// Nothing stale: leave the manifest timestamp untouched.
			logging.Info("batch: all %d originals fresh, nothing to do", len(originals))
			return nil
		}
	}

	numWorkers := workers.Count(len(toProcess))
	logging.Info("batch: processing %d originals with %d workers (force=%v)",
		len(toProcess), numWorkers, forceAll)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)

	var processed, failed atomic.Int64

	for _, rel := range toProcess {
		rel := rel
		g.Go(func() error {
			if _, genErr := p.Generate(gctx, rel); genErr != nil {
				// Per-original failures are absorbed and reported.
				logging.Error("batch: %s: %v", rel, genErr)
				failed.Add(1)
			} else {
				processed.Add(1)
			}
			return nil
		})
	}
	// Goroutines never return errors; Wait only observes ctx cancellation.
	_ = g.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.PipelineErrors.Inc()
		err = ctxErr
		return err
	}

	p.store.StampGeneratedAt(time.Now())
	if err = p.Persist(); err != nil {
		metrics.PipelineErrors.Inc()
		return fmt.Errorf("batch: failed to persist manifest: %w", err)
	}

	duration := time.Since(start)
	metrics.PipelineLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.PipelineLastRunDuration.Set(duration.Seconds())

	logging.Info("batch: complete, %d processed, %d failed in %v",
		processed.Load(), failed.Load(), duration)
	return nil
}

// discoverOriginals walks the input root and returns the sorted relative
// paths (POSIX-style) of all supported images. Dotfiles and dot-directories
// are skipped.
func (p *Pipeline) discoverOriginals() ([]string, error) {
	info, err := os.Stat(p.cfg.InputDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, p.cfg.InputDir)
	}

	var originals []string
	walkErr := filepath.WalkDir(p.cfg.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("batch: error accessing %s: %v", path, err)
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") && path != p.cfg.InputDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !imagepath.IsSupportedImage(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(p.cfg.InputDir, path)
		if err != nil {
			return err
		}
		originals = append(originals, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk input directory: %w", walkErr)
	}

	sort.Strings(originals)
	return originals, nil
}

// WriteManifest rebuilds the manifest from the current on-disk state without
// encoding anything: originals are probed for dimensions and each configured
// (width, format) pair whose output file already exists is recorded.
func (p *Pipeline) WriteManifest(ctx context.Context) error {
	originals, err := p.discoverOriginals()
	if err != nil {
		return err
	}

	p.store.Reset()

	for _, rel := range originals {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		srcPath := filepath.Join(p.cfg.InputDir, filepath.FromSlash(rel))
		dims, err := p.codec.Probe(ctx, srcPath)
		if err != nil {
			logging.Warn("manifest: cannot probe %s: %v", rel, err)
			continue
		}

		entry := p.entryFromDisk(rel, dims)
		p.store.Upsert(rel, entry)
	}

	p.store.StampGeneratedAt(time.Now())
	logging.Info("manifest: recorded %d originals", p.store.Len())
	return p.save()
}

// entryFromDisk builds a manifest entry from whatever variant files already
// exist for the original, without encoding.
func (p *Pipeline) entryFromDisk(relPath string, dims codec.Dimensions) manifest.Entry {
	var variants []manifest.Variant

	for _, width := range p.cfg.Widths {
		if width > dims.Width {
			continue
		}
		for _, format := range p.cfg.Formats {
			outRel := imagepath.OutputFilename(relPath, width, format)
			info, err := os.Stat(filepath.Join(p.cfg.OutputDir, filepath.FromSlash(outRel)))
			if err != nil {
				continue
			}
			variants = append(variants, manifest.Variant{
				Format: format,
				Width:  width,
				Height: coverHeight(width, dims),
				Path:   outRel,
				Size:   info.Size(),
			})
		}
	}

	return manifest.Entry{Width: dims.Width, Height: dims.Height, Variants: variants}
}
