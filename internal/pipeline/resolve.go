package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/filesystem"
	"image-pipeline/internal/imagepath"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/manifest"
	"image-pipeline/internal/metrics"
)

// ServeSource tells the HTTP layer how a response was produced, so callers
// can reason about cache effectiveness.
type ServeSource string

const (
	// SourceCached means a pre-built or previously disk-cached variant was
	// served straight from the output tree.
	SourceCached ServeSource = "cached"
	// SourceGenerated means the variant was produced for this request.
	SourceGenerated ServeSource = "generated"
	// SourceOriginal means the unmodified original was served from the
	// input tree.
	SourceOriginal ServeSource = "original"
)

// ServeResult is the outcome of an on-the-fly resolution. Exactly one of
// FilePath and Data is set: FilePath when the response comes from disk, Data
// when it was generated in memory.
type ServeResult struct {
	Source      ServeSource
	ContentType string
	FilePath    string
	Data        []byte
}

// ResolveVariant serves a request whose path matches the variant naming
// scheme <stem>-<width>w.<format>.
//
// If the output file already exists it is served directly. Otherwise the
// original is derived by probing a fixed list of candidate extensions under
// the input root, the variant is generated at the configured quality, disk
// cached at the expected output path (satisfying future staleness checks and
// future requests), recorded in the manifest, and served.
func (p *Pipeline) ResolveVariant(ctx context.Context, relPath string, v imagepath.Variant) (*ServeResult, error) {
	outPath := filepath.Join(p.cfg.OutputDir, filepath.FromSlash(relPath))
	if info, err := os.Stat(outPath); err == nil && !info.IsDir() {
		return &ServeResult{
			Source:      SourceCached,
			ContentType: v.Format.MimeType(),
			FilePath:    outPath,
		}, nil
	}

	srcRel, srcPath, ok := p.findOriginal(v.Stem)
	if !ok {
		return nil, fmt.Errorf("%w: no original for %s", ErrNotFound, relPath)
	}

	start := time.Now()
	encoded, err := p.transformOriginal(ctx, srcPath, v.Width, v.Format, p.cfg.Quality)
	if err != nil {
		return nil, err
	}
	metrics.ServeGenerationDuration.Observe(time.Since(start).Seconds())

	// Encoding completed in memory, so a canceled request never leaves a
	// partial file behind; the atomic write covers crashes mid-write.
	if err := writeFileAtomic(outPath, encoded.Data); err != nil {
		logging.Warn("resolve: failed to cache %s: %v", relPath, err)
	} else {
		p.recordVariant(srcRel, relPath, v.Format, encoded)
		if err := p.Persist(); err != nil {
			logging.Warn("resolve: failed to persist manifest: %v", err)
		}
	}

	return &ServeResult{
		Source:      SourceGenerated,
		ContentType: v.Format.MimeType(),
		Data:        encoded.Data,
	}, nil
}

// ResolveQuery serves a query-parameterized request (?w=&format=&q=). The
// result is always generated fresh and never written to disk.
func (p *Pipeline) ResolveQuery(ctx context.Context, relPath string, width int, format codec.Format, quality int) (*ServeResult, error) {
	srcPath := filepath.Join(p.cfg.InputDir, filepath.FromSlash(relPath))
	if _, err := os.Stat(srcPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}

	if quality == 0 {
		quality = p.cfg.Quality
	}
	if format == "" {
		ext := strings.TrimPrefix(path.Ext(relPath), ".")
		if f, err := codec.ParseFormat(ext); err == nil {
			format = f
		} else {
			// Originals with no matching encoder (gif, tiff, svg) default
			// to jpeg.
			format = codec.FormatJPEG
		}
	}

	start := time.Now()
	encoded, err := p.transformOriginal(ctx, srcPath, width, format, quality)
	if err != nil {
		return nil, err
	}
	metrics.ServeGenerationDuration.Observe(time.Since(start).Seconds())

	return &ServeResult{
		Source:      SourceGenerated,
		ContentType: format.MimeType(),
		Data:        encoded.Data,
	}, nil
}

// ResolvePlain serves a request with no query parameters that does not match
// the variant naming scheme: a pre-existing file from the output tree if one
// exists, else the unmodified original from the input tree.
func (p *Pipeline) ResolvePlain(relPath string) (*ServeResult, error) {
	outPath := filepath.Join(p.cfg.OutputDir, filepath.FromSlash(relPath))
	if info, err := os.Stat(outPath); err == nil && !info.IsDir() {
		return &ServeResult{
			Source:      SourceCached,
			ContentType: imagepath.MimeType(relPath),
			FilePath:    outPath,
		}, nil
	}

	srcPath := filepath.Join(p.cfg.InputDir, filepath.FromSlash(relPath))
	if info, err := os.Stat(srcPath); err == nil && !info.IsDir() {
		return &ServeResult{
			Source:      SourceOriginal,
			ContentType: imagepath.MimeType(relPath),
			FilePath:    srcPath,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
}

// transformOriginal probes the original, clamps the target width to the
// intrinsic width (no enlargement), derives the cover height and encodes.
func (p *Pipeline) transformOriginal(ctx context.Context, srcPath string, width int, format codec.Format, quality int) (*codec.Encoded, error) {
	dims, err := p.codec.Probe(ctx, srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransformFailed, srcPath, err)
	}

	if width <= 0 || width > dims.Width {
		width = dims.Width
	}

	encoded, err := p.codec.Transform(ctx, srcPath, codec.Options{
		Width:   width,
		Height:  coverHeight(width, dims),
		Format:  format,
		Quality: quality,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransformFailed, srcPath, err)
	}
	return encoded, nil
}

// findOriginal locates the original for a variant stem by trying candidate
// extensions in order under the input root. First existing file wins.
func (p *Pipeline) findOriginal(stem string) (rel string, abs string, ok bool) {
	for _, ext := range imagepath.CandidateExtensions {
		rel := stem + "." + ext
		abs := filepath.Join(p.cfg.InputDir, filepath.FromSlash(rel))
		if info, err := filesystem.Stat(abs); err == nil && !info.IsDir() {
			return rel, abs, true
		}
	}
	return "", "", false
}

// recordVariant merges an on-the-fly variant into the original's manifest
// entry, keeping whole-entry replacement semantics. This closes the window
// where a disk-cached variant would be invisible to staleness checks until
// the next full scan.
func (p *Pipeline) recordVariant(srcRel, outRel string, format codec.Format, encoded *codec.Encoded) {
	entry, ok := p.store.Entry(srcRel)
	if !ok {
		entry = manifest.Entry{}
	}

	variant := manifest.Variant{
		Format: format,
		Width:  encoded.Width,
		Height: encoded.Height,
		Path:   outRel,
		Size:   int64(len(encoded.Data)),
	}

	replaced := false
	for i, v := range entry.Variants {
		if v.Width == variant.Width && v.Format == variant.Format {
			entry.Variants[i] = variant
			replaced = true
			break
		}
	}
	if !replaced {
		entry.Variants = append(entry.Variants, variant)
	}

	p.store.Upsert(srcRel, entry)
}
