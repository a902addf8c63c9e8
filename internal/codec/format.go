package codec

import (
	"fmt"
	"strings"
)

// Format identifies a supported output image format. The set is closed:
// every switch over Format in this package handles all four values so a
// newly added format fails to compile until each encoder path decides
// what to do with it.
type Format string

const (
	// FormatWebP is the WebP output format.
	FormatWebP Format = "webp"
	// FormatAVIF is the AVIF output format.
	FormatAVIF Format = "avif"
	// FormatJPEG is the JPEG output format.
	FormatJPEG Format = "jpeg"
	// FormatPNG is the PNG output format.
	FormatPNG Format = "png"
)

// Formats lists all supported output formats in a stable order.
var Formats = []Format{FormatWebP, FormatAVIF, FormatJPEG, FormatPNG}

// ParseFormat converts a user-supplied string into a Format.
// "jpg" is accepted as an alias for "jpeg".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "webp":
		return FormatWebP, nil
	case "avif":
		return FormatAVIF, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// Ext returns the file extension for the format, without the leading dot.
func (f Format) Ext() string {
	return string(f)
}

// MimeType returns the Content-Type value for the format.
func (f Format) MimeType() string {
	switch f {
	case FormatWebP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}
