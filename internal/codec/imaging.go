package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"image-pipeline/internal/logging"

	// Image format decoders
	_ "image/gif"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decode support
)

// ImagingCodec implements Codec in pure Go using the imaging library. It is
// the fallback when libvips is not linked in: it can decode jpeg/png/gif/webp
// but only encode jpeg and png. WebP and AVIF transforms fail per-variant and
// the generator continues with the remaining formats.
type ImagingCodec struct{}

// NewImagingCodec returns the pure-Go fallback codec.
func NewImagingCodec() *ImagingCodec {
	return &ImagingCodec{}
}

// Probe returns the intrinsic dimensions using image.DecodeConfig, which
// reads only the header.
func (c *ImagingCodec) Probe(_ context.Context, path string) (Dimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return Dimensions{}, err
	}

	return Dimensions{Width: config.Width, Height: config.Height}, nil
}

// Transform cover-resizes and encodes the image at path.
func (c *ImagingCodec) Transform(ctx context.Context, path string, opts Options) (*Encoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	// Fill crops to the exact target aspect (cover fit), never letterboxes.
	resized := imaging.Fill(img, opts.Width, opts.Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	switch opts.Format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: opts.Quality})
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, resized)
	case FormatWebP, FormatAVIF:
		return nil, fmt.Errorf("pure-Go codec cannot encode %s (libvips required)", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", opts.Format, err)
	}

	bounds := resized.Bounds()
	return &Encoded{Data: buf.Bytes(), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
