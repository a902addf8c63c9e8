package imagepath

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"image-pipeline/internal/codec"
)

// supportedExtensions are the source image extensions the pipeline picks up
// during discovery. Keys are lowercase without the leading dot.
var supportedExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "avif": true, "tiff": true, "svg": true,
}

// CandidateExtensions is the ordered list of extensions tried when deriving
// an original from a requested variant filename. First existing file wins.
var CandidateExtensions = []string{"jpg", "jpeg", "png", "webp", "avif"}

// variantPattern matches generated variant filenames: <stem>-<width>w.<format>
var variantPattern = regexp.MustCompile(`^(.*)-(\d+)w\.(webp|avif|jpeg|png)$`)

// IsSupportedImage reports whether filename has a supported source image
// extension. The check is case-insensitive.
func IsSupportedImage(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	return supportedExtensions[ext]
}

// OutputFilename maps an original's relative path to the relative output path
// of one of its variants: the extension is stripped and "-{width}w.{format}"
// is appended. A basename without an extension is used whole as the stem.
func OutputFilename(originalPath string, width int, format codec.Format) string {
	ext := path.Ext(originalPath)
	stem := strings.TrimSuffix(originalPath, ext)
	return fmt.Sprintf("%s-%dw.%s", stem, width, format.Ext())
}

// Variant describes a parsed variant filename.
type Variant struct {
	// Stem is the original's relative path without extension.
	Stem   string
	Width  int
	Format codec.Format
}

// MatchVariant parses a relative path of the form <stem>-<width>w.<format>.
// The second return value is false when the path does not follow the variant
// naming scheme.
func MatchVariant(relPath string) (Variant, bool) {
	m := variantPattern.FindStringSubmatch(relPath)
	if m == nil {
		return Variant{}, false
	}

	width, err := strconv.Atoi(m[2])
	if err != nil || width <= 0 {
		return Variant{}, false
	}

	format, err := codec.ParseFormat(m[3])
	if err != nil {
		return Variant{}, false
	}

	return Variant{Stem: m[1], Width: width, Format: format}, true
}

// VariantURL builds the public URL of a pre-built variant.
func VariantURL(publicPath, originalPath string, width int, format codec.Format) string {
	return JoinURL(publicPath, OutputFilename(originalPath, width, format))
}

// QueryURL builds the public URL of an on-the-fly request with explicit
// width, format and quality query parameters.
func QueryURL(publicPath, originalPath string, width int, format codec.Format, quality int) string {
	return fmt.Sprintf("%s?w=%d&format=%s&q=%d",
		JoinURL(publicPath, originalPath), width, format.Ext(), quality)
}

// mimeTypes maps source file extensions to their MIME types.
var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"avif": "image/avif",
	"tiff": "image/tiff",
	"svg":  "image/svg+xml",
}

// MimeType returns the Content-Type for a source image filename, or
// "application/octet-stream" for anything unrecognized.
func MimeType(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if mt, ok := mimeTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// JoinURL joins URL path segments with single separators, collapsing any
// repeated slashes introduced by the inputs.
func JoinURL(segments ...string) string {
	joined := strings.Join(segments, "/")
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}
