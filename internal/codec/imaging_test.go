package codec

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestJPEG writes a solid-color JPEG of the given size and returns its
// path.
func writeTestJPEG(t *testing.T, dir string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}

	path := filepath.Join(dir, "test.jpg")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}

func TestImagingCodecProbe(t *testing.T) {
	path := writeTestJPEG(t, t.TempDir(), 120, 80)

	c := NewImagingCodec()
	dims, err := c.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if dims.Width != 120 || dims.Height != 80 {
		t.Errorf("Probe() = %dx%d, want 120x80", dims.Width, dims.Height)
	}
}

func TestImagingCodecProbeMissingFile(t *testing.T) {
	c := NewImagingCodec()
	if _, err := c.Probe(context.Background(), filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Error("Probe() on missing file did not error")
	}
}

func TestImagingCodecTransform(t *testing.T) {
	path := writeTestJPEG(t, t.TempDir(), 120, 80)
	c := NewImagingCodec()

	tests := []struct {
		name   string
		opts   Options
		decode bool
	}{
		{
			name:   "jpeg resize",
			opts:   Options{Width: 60, Height: 40, Format: FormatJPEG, Quality: 80},
			decode: true,
		},
		{
			name:   "png resize",
			opts:   Options{Width: 30, Height: 20, Format: FormatPNG, Quality: 80},
			decode: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := c.Transform(context.Background(), path, tt.opts)
			if err != nil {
				t.Fatalf("Transform() error: %v", err)
			}
			if encoded.Width != tt.opts.Width || encoded.Height != tt.opts.Height {
				t.Errorf("Transform() dims = %dx%d, want %dx%d",
					encoded.Width, encoded.Height, tt.opts.Width, tt.opts.Height)
			}
			if len(encoded.Data) == 0 {
				t.Error("Transform() returned no data")
			}

			if tt.decode {
				cfg, _, err := image.DecodeConfig(bytes.NewReader(encoded.Data))
				if err != nil {
					t.Fatalf("output does not decode: %v", err)
				}
				if cfg.Width != tt.opts.Width || cfg.Height != tt.opts.Height {
					t.Errorf("decoded dims = %dx%d, want %dx%d",
						cfg.Width, cfg.Height, tt.opts.Width, tt.opts.Height)
				}
			}
		})
	}
}

func TestImagingCodecTransformUnsupportedEncoders(t *testing.T) {
	path := writeTestJPEG(t, t.TempDir(), 120, 80)
	c := NewImagingCodec()

	for _, format := range []Format{FormatWebP, FormatAVIF} {
		t.Run(string(format), func(t *testing.T) {
			_, err := c.Transform(context.Background(), path, Options{
				Width: 60, Height: 40, Format: format, Quality: 80,
			})
			if err == nil {
				t.Fatalf("Transform(%s) did not error", format)
			}
			if !strings.Contains(err.Error(), "libvips") {
				t.Errorf("Transform(%s) error = %v, want mention of libvips", format, err)
			}
		})
	}
}

func TestImagingCodecTransformCanceledContext(t *testing.T) {
	path := writeTestJPEG(t, t.TempDir(), 120, 80)
	c := NewImagingCodec()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Transform(ctx, path, Options{Width: 60, Height: 40, Format: FormatJPEG, Quality: 80}); err == nil {
		t.Error("Transform() with canceled context did not error")
	}
}
