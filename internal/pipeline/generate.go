package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/imagepath"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/manifest"
	"image-pipeline/internal/metrics"
)

// VariantStatus is the per-variant outcome of a generation pass.
type VariantStatus string

const (
	// StatusGenerated means the variant was encoded and written.
	StatusGenerated VariantStatus = "generated"
	// StatusSkippedExists means the output file already existed and
	// skip-existing policy recorded it without re-encoding.
	StatusSkippedExists VariantStatus = "skipped-exists"
	// StatusSkippedTooWide means the target width exceeds the original's
	// intrinsic width and the variant was never attempted.
	StatusSkippedTooWide VariantStatus = "skipped-too-wide"
	// StatusFailed means the codec failed for this variant.
	StatusFailed VariantStatus = "failed"
)

// VariantResult reports the outcome for one (width, format) pair so callers
// can see exactly which variants failed without aborting sibling work.
type VariantResult struct {
	Width  int
	Format codec.Format
	Status VariantStatus
	Path   string
	Err    error
}

// Generate produces the complete variant list for one original and replaces
// its manifest entry. Per-variant encode failures are recorded in the result
// list and generation continues; a total failure (unreadable source) returns
// an error wrapping ErrSourceUnreadable and leaves the manifest untouched.
func (p *Pipeline) Generate(ctx context.Context, relPath string) ([]VariantResult, error) {
	srcPath := filepath.Join(p.cfg.InputDir, filepath.FromSlash(relPath))

	dims, err := p.codec.Probe(ctx, srcPath)
	if err != nil {
		metrics.SourceErrors.Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, relPath, err)
	}
	if dims.Width <= 0 || dims.Height <= 0 {
		metrics.SourceErrors.Inc()
		return nil, fmt.Errorf("%w: %s reported %dx%d", ErrSourceUnreadable, relPath, dims.Width, dims.Height)
	}

	logging.Debug("generate: %s (%dx%d)", relPath, dims.Width, dims.Height)

	var results []VariantResult
	var variants []manifest.Variant

	for _, width := range p.cfg.Widths {
		if width > dims.Width {
			// Never upscale.
			logging.Debug("generate: %s skipping %dw (source is %dpx wide)", relPath, width, dims.Width)
			for _, format := range p.cfg.Formats {
				metrics.VariantsSkippedTotal.WithLabelValues("too_wide").Inc()
				results = append(results, VariantResult{
					Width: width, Format: format, Status: StatusSkippedTooWide,
				})
			}
			continue
		}

		height := coverHeight(width, dims)

		for _, format := range p.cfg.Formats {
			result, variant := p.generateOne(ctx, relPath, srcPath, width, height, format)
			results = append(results, result)
			if variant != nil {
				variants = append(variants, *variant)
			}
		}
	}

	if p.cfg.KeepOriginal {
		if err := p.copyOriginal(relPath, srcPath); err != nil {
			logging.Warn("generate: failed to copy original %s: %v", relPath, err)
		}
	}

	// Whole-entry replacement: readers never observe a half-updated entry.
	p.store.Upsert(relPath, manifest.Entry{
		Width:    dims.Width,
		Height:   dims.Height,
		Variants: variants,
	})

	return results, nil
}

// generateOne handles a single (width, format) pair. The returned variant is
// nil when the pair produced no usable output file.
func (p *Pipeline) generateOne(ctx context.Context, relPath, srcPath string, width, height int, format codec.Format) (VariantResult, *manifest.Variant) {
	outRel := imagepath.OutputFilename(relPath, width, format)
	outPath := filepath.Join(p.cfg.OutputDir, filepath.FromSlash(outRel))

	if p.cfg.SkipExisting {
		if info, err := os.Stat(outPath); err == nil {
			// Existing output is trusted without content verification.
			metrics.VariantsSkippedTotal.WithLabelValues("exists").Inc()
			return VariantResult{Width: width, Format: format, Status: StatusSkippedExists, Path: outRel},
				&manifest.Variant{
					Format: format,
					Width:  width,
					Height: height,
					Path:   outRel,
					Size:   info.Size(),
				}
		}
	}

	start := time.Now()
	encoded, err := p.codec.Transform(ctx, srcPath, codec.Options{
		Width:   width,
		Height:  height,
		Format:  format,
		Quality: p.cfg.Quality,
	})
	if err != nil {
		metrics.VariantEncodeFailures.WithLabelValues(format.Ext()).Inc()
		logging.Warn("generate: %s %dw %s failed: %v", relPath, width, format, err)
		return VariantResult{
			Width: width, Format: format, Status: StatusFailed,
			Err: fmt.Errorf("%w: %s %dw %s: %v", ErrEncodeFailed, relPath, width, format, err),
		}, nil
	}
	metrics.VariantEncodeDuration.WithLabelValues(format.Ext()).Observe(time.Since(start).Seconds())

	if err := writeFileAtomic(outPath, encoded.Data); err != nil {
		metrics.VariantEncodeFailures.WithLabelValues(format.Ext()).Inc()
		logging.Warn("generate: %s %dw %s write failed: %v", relPath, width, format, err)
		return VariantResult{
			Width: width, Format: format, Status: StatusFailed,
			Err: fmt.Errorf("%w: %s %dw %s: %v", ErrEncodeFailed, relPath, width, format, err),
		}, nil
	}

	metrics.VariantsGeneratedTotal.WithLabelValues(format.Ext()).Inc()
	logging.Debug("generate: wrote %s (%d bytes)", outRel, len(encoded.Data))

	return VariantResult{Width: width, Format: format, Status: StatusGenerated, Path: outRel},
		&manifest.Variant{
			Format: format,
			Width:  encoded.Width,
			Height: encoded.Height,
			Path:   outRel,
			Size:   int64(len(encoded.Data)),
		}
}

// copyOriginal mirrors the untouched original into the output tree.
func (p *Pipeline) copyOriginal(relPath, srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(p.cfg.OutputDir, filepath.FromSlash(relPath)), data)
}

// coverHeight computes the derived height for a cover-resize at the target
// width, preserving the original aspect ratio.
func coverHeight(width int, dims codec.Dimensions) int {
	return int(math.Round(float64(width) * float64(dims.Height) / float64(dims.Width)))
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place so a canceled or crashed write never leaves a
// partial file visible.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".variant-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
