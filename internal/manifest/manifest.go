package manifest

import (
	"time"

	"image-pipeline/internal/codec"
)

// Variant is one generated rendition of an original image. A variant is
// immutable once written; regeneration replaces the whole owning entry.
// Identity is (original path, format, width).
type Variant struct {
	Format codec.Format `json:"format"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	// Path is the variant's relative output path: <stem>-<width>w.<format>
	Path string `json:"path"`
	// Size in bytes, informational only.
	Size int64 `json:"size"`
}

// Entry holds one original's intrinsic metadata and its variant list. The
// variant list is ordered width-ascending then by configured format order,
// which keeps serialization deterministic.
type Entry struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Variants []Variant `json:"variants"`
}

// Manifest is the persisted record of everything the pipeline has generated.
type Manifest struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Images      map[string]Entry `json:"images"`
}

// New returns an empty manifest.
func New() Manifest {
	return Manifest{Images: make(map[string]Entry)}
}
